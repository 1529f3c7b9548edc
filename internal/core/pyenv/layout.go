// Package pyenv contains pure logic for Python virtual environment layout
// and setup planning. It performs no I/O; callers observe the filesystem
// and feed facts in.
package pyenv

import (
	"path/filepath"
	"runtime"
	"strings"
)

// =============================================================================
// Layout
// =============================================================================

// VenvDirName is the directory the virtual environment lives in, relative
// to the base directory.
const VenvDirName = ".venv"

// Layout describes the on-disk shape of a virtual environment for a given
// platform. Windows uses Scripts\python.exe, everything else bin/python.
type Layout struct {
	root    string
	windows bool
}

// NewLayout returns the layout for the current platform, rooted at baseDir.
func NewLayout(baseDir string) Layout {
	return LayoutFor(baseDir, runtime.GOOS)
}

// LayoutFor returns the layout for an explicit GOOS value.
func LayoutFor(baseDir, goos string) Layout {
	return Layout{
		root:    filepath.Join(baseDir, VenvDirName),
		windows: goos == "windows",
	}
}

// Root returns the virtual environment directory.
func (l Layout) Root() string {
	return l.root
}

// BinDir returns the directory holding the environment's executables.
func (l Layout) BinDir() string {
	if l.windows {
		return filepath.Join(l.root, "Scripts")
	}
	return filepath.Join(l.root, "bin")
}

// Interpreter returns the path of the environment's Python interpreter.
// Its existence is the sole signal that the environment is usable.
func (l Layout) Interpreter() string {
	if l.windows {
		return filepath.Join(l.BinDir(), "python.exe")
	}
	return filepath.Join(l.BinDir(), "python")
}

// ActivateScript returns the path of the environment's activation hook.
func (l Layout) ActivateScript() string {
	if l.windows {
		return filepath.Join(l.BinDir(), "activate.bat")
	}
	return filepath.Join(l.BinDir(), "activate")
}

// =============================================================================
// Activated Environment
// =============================================================================

// Environ derives the activated process environment from a base
// environment: VIRTUAL_ENV is set, the environment's bin directory is
// prepended to PATH, and PYTHONHOME is removed. This mirrors what the
// activation hook does to an interactive shell.
func (l Layout) Environ(base []string) []string {
	pathKey := "PATH"
	sep := string(filepath.ListSeparator)

	env := make([]string, 0, len(base)+2)
	pathSeen := false
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			env = append(env, kv)
			continue
		}
		switch {
		case strings.EqualFold(key, "VIRTUAL_ENV"), strings.EqualFold(key, "PYTHONHOME"):
			// Dropped; VIRTUAL_ENV is re-added below.
		case strings.EqualFold(key, pathKey):
			env = append(env, key+"="+l.BinDir()+sep+value)
			pathSeen = true
		default:
			env = append(env, kv)
		}
	}
	if !pathSeen {
		env = append(env, pathKey+"="+l.BinDir())
	}
	env = append(env, "VIRTUAL_ENV="+l.root)
	return env
}

// =============================================================================
// System Interpreter Candidates
// =============================================================================

// InterpreterCandidates returns the system interpreter names to probe, in
// preference order, for the given GOOS.
func InterpreterCandidates(goos string) []string {
	if goos == "windows" {
		return []string{"py", "python", "python3"}
	}
	return []string{"python3", "python"}
}
