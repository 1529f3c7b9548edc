package pyenv

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Layout Tests
// =============================================================================

func TestLayoutFor_Posix(t *testing.T) {
	l := LayoutFor("/srv/starpoint", "linux")

	assert.Equal(t, filepath.Join("/srv/starpoint", ".venv"), l.Root())
	assert.Equal(t, filepath.Join("/srv/starpoint", ".venv", "bin"), l.BinDir())
	assert.Equal(t, filepath.Join("/srv/starpoint", ".venv", "bin", "python"), l.Interpreter())
	assert.Equal(t, filepath.Join("/srv/starpoint", ".venv", "bin", "activate"), l.ActivateScript())
}

func TestLayoutFor_Windows(t *testing.T) {
	l := LayoutFor("base", "windows")

	assert.Equal(t, filepath.Join("base", ".venv", "Scripts"), l.BinDir())
	assert.Equal(t, filepath.Join("base", ".venv", "Scripts", "python.exe"), l.Interpreter())
	assert.Equal(t, filepath.Join("base", ".venv", "Scripts", "activate.bat"), l.ActivateScript())
}

func TestLayout_Environ(t *testing.T) {
	l := LayoutFor("/srv/app", "linux")
	sep := string(filepath.ListSeparator)

	env := l.Environ([]string{
		"PATH=/usr/bin" + sep + "/bin",
		"HOME=/home/op",
		"PYTHONHOME=/usr/lib/python3",
		"VIRTUAL_ENV=/somewhere/else",
	})

	assert.Contains(t, env, "PATH="+l.BinDir()+sep+"/usr/bin"+sep+"/bin")
	assert.Contains(t, env, "HOME=/home/op")
	assert.Contains(t, env, "VIRTUAL_ENV="+l.Root())
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "PYTHONHOME="), "PYTHONHOME must be dropped, got %q", kv)
		assert.False(t, strings.HasPrefix(kv, "VIRTUAL_ENV=/somewhere"), "stale VIRTUAL_ENV must be replaced")
	}
}

func TestLayout_Environ_NoPath(t *testing.T) {
	l := LayoutFor("/srv/app", "linux")

	env := l.Environ([]string{"HOME=/home/op"})
	assert.Contains(t, env, "PATH="+l.BinDir())
}

// =============================================================================
// Interpreter Candidate Tests
// =============================================================================

func TestInterpreterCandidates(t *testing.T) {
	assert.Equal(t, []string{"python3", "python"}, InterpreterCandidates("linux"))
	assert.Equal(t, []string{"python3", "python"}, InterpreterCandidates("darwin"))
	assert.Equal(t, []string{"py", "python", "python3"}, InterpreterCandidates("windows"))
}
