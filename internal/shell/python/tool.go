package python

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/starpoint/launchpad/internal/core/pyenv"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNoInterpreter is returned when no system Python can be found.
	ErrNoInterpreter = errors.New("no system Python interpreter found")

	// ErrVenvCreateFailed is returned when venv creation exits non-zero.
	ErrVenvCreateFailed = errors.New("virtual environment creation failed")

	// ErrActivationFailed is returned when the environment exists but is
	// not usable.
	ErrActivationFailed = errors.New("virtual environment activation failed")

	// ErrInstallFailed is returned when a pip invocation exits non-zero.
	// Callers treat it as best effort.
	ErrInstallFailed = errors.New("package installation failed")
)

// maxOutputExcerpt bounds how much process output is folded into an error.
const maxOutputExcerpt = 4 * 1024

// =============================================================================
// Tool
// =============================================================================

// Tool drives the interpreter and pip for one base directory.
type Tool struct {
	layout   pyenv.Layout
	baseDir  string
	runner   Runner
	logger   *slog.Logger
	lookPath func(string) (string, error)

	// systemPython caches the resolved system interpreter.
	systemPython string
}

// NewTool creates a Tool rooted at baseDir.
func NewTool(baseDir string, layout pyenv.Layout, runner Runner, logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		layout:   layout,
		baseDir:  baseDir,
		runner:   runner,
		logger:   logger.With("component", "python"),
		lookPath: exec.LookPath,
	}
}

// SystemInterpreter resolves the system Python used for venv creation. An
// explicit override wins; otherwise the platform candidates are probed on
// PATH in order.
func (t *Tool) SystemInterpreter(override string, candidates []string) (string, error) {
	if t.systemPython != "" {
		return t.systemPython, nil
	}
	if override != "" {
		t.systemPython = override
		return override, nil
	}
	for _, name := range candidates {
		if path, err := t.lookPath(name); err == nil {
			t.logger.Debug("system interpreter resolved", "name", name, "path", path)
			t.systemPython = path
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrNoInterpreter, strings.Join(candidates, ", "))
}

// CreateVenv creates the virtual environment with the system interpreter.
// A non-zero exit is fatal to the launch.
func (t *Tool) CreateVenv(ctx context.Context, systemPython string) error {
	t.logger.Info("creating virtual environment", "dir", t.layout.Root())

	res, err := t.runner.Run(ctx, Command{
		Path: systemPython,
		Args: []string{"-m", "venv", pyenv.VenvDirName},
		Dir:  t.baseDir,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVenvCreateFailed, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: exit code %d%s", ErrVenvCreateFailed, res.ExitCode, outputExcerpt(res))
	}
	return nil
}

// Activate verifies the environment is usable and returns the activated
// process environment for child processes. Failure is fatal to the launch.
func (t *Tool) Activate(ctx context.Context) ([]string, error) {
	interpreter := t.layout.Interpreter()
	if _, err := os.Stat(interpreter); err != nil {
		return nil, fmt.Errorf("%w: interpreter missing at %s", ErrActivationFailed, interpreter)
	}

	res, err := t.runner.Run(ctx, Command{
		Path: interpreter,
		Args: []string{"--version"},
		Dir:  t.baseDir,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActivationFailed, err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit code %d%s", ErrActivationFailed, res.ExitCode, outputExcerpt(res))
	}

	version := string(bytes.TrimSpace(append(append([]byte{}, res.Stdout...), res.Stderr...)))
	t.logger.Info("virtual environment active", "interpreter", interpreter, "version", version)

	return t.layout.Environ(os.Environ()), nil
}

// UpgradeTooling upgrades pip, setuptools and wheel inside the
// environment. Best effort: the caller logs the returned error and moves
// on.
func (t *Tool) UpgradeTooling(ctx context.Context, env []string) error {
	return t.pip(ctx, env, "install", "--upgrade", "pip", "setuptools", "wheel")
}

// InstallRequirements installs from the dependency manifest inside the
// environment. Best effort, like UpgradeTooling.
func (t *Tool) InstallRequirements(ctx context.Context, env []string, manifestPath string) error {
	return t.pip(ctx, env, "install", "-r", manifestPath)
}

// pip runs a pip subcommand with the environment's interpreter.
func (t *Tool) pip(ctx context.Context, env []string, args ...string) error {
	full := append([]string{"-m", "pip"}, args...)

	res, err := t.runner.Run(ctx, Command{
		Path: t.layout.Interpreter(),
		Args: full,
		Dir:  t.baseDir,
		Env:  env,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: pip %s: exit code %d%s", ErrInstallFailed, strings.Join(args, " "), res.ExitCode, outputExcerpt(res))
	}
	return nil
}

// outputExcerpt folds a bounded amount of combined process output into an
// error message.
func outputExcerpt(res *Result) string {
	out := bytes.TrimSpace(append(append([]byte{}, res.Stdout...), res.Stderr...))
	if len(out) == 0 {
		return ""
	}
	if len(out) > maxOutputExcerpt {
		out = append(out[:maxOutputExcerpt], []byte("\n...<truncated>")...)
	}
	return "\n" + string(out)
}
