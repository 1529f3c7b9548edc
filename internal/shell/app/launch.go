// Package app launches the web application process and owns its log sink.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
)

// =============================================================================
// Launch Spec
// =============================================================================

// LaunchSpec describes one application launch.
type LaunchSpec struct {
	// Interpreter is the virtual environment's Python interpreter; the
	// framework CLI is invoked through it as a module.
	Interpreter string

	// Entrypoint is the application file handed to the framework.
	Entrypoint string

	// Address and Port are forced onto the server via CLI flags.
	Address string
	Port    int

	// LogPath is the combined stdout+stderr sink, truncated per launch.
	LogPath string

	// Dir is the working directory for the process.
	Dir string

	// Env is the activated process environment.
	Env []string
}

// args builds the framework CLI invocation.
func (s LaunchSpec) args() []string {
	return []string{
		"-m", "streamlit", "run", s.Entrypoint,
		"--server.address=" + s.Address,
		"--server.port=" + strconv.Itoa(s.Port),
	}
}

// =============================================================================
// Launcher
// =============================================================================

// ErrLaunchFailed is returned when the process cannot be started at all.
// A started process that later exits non-zero is not an error; its code is
// reported as the launch result.
var ErrLaunchFailed = errors.New("application launch failed")

// Launcher starts the application and blocks until it exits.
type Launcher struct {
	logger *slog.Logger

	// notify allows tests to substitute signal delivery.
	notify func(chan<- os.Signal, ...os.Signal)
}

// NewLauncher creates a Launcher.
func NewLauncher(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		logger: logger.With("component", "app"),
		notify: signal.Notify,
	}
}

// Launch runs the application until it exits and returns its exit code.
// Both output streams are redirected into the log sink. SIGINT and SIGTERM
// received by the launcher are forwarded to the application so that a
// manual stop lands on the app, not just on us.
func (l *Launcher) Launch(ctx context.Context, spec LaunchSpec) (int, error) {
	logFile, err := os.Create(spec.LogPath)
	if err != nil {
		return 0, fmt.Errorf("%w: open log sink: %v", ErrLaunchFailed, err)
	}
	defer logFile.Close()

	cmd := exec.Command(spec.Interpreter, spec.args()...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	l.logger.Info("application started",
		"pid", cmd.Process.Pid,
		"entrypoint", spec.Entrypoint,
		"address", spec.Address,
		"port", spec.Port,
		"log", spec.LogPath,
	)

	sigCh := make(chan os.Signal, 1)
	l.notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigCh:
			l.logger.Info("forwarding signal to application", "signal", sig.String())
			_ = cmd.Process.Signal(sig)
		case <-ctx.Done():
			_ = cmd.Process.Signal(syscall.SIGTERM)
			err := <-done
			return exitCode(err), nil
		case err := <-done:
			code := exitCode(err)
			l.logger.Info("application exited", "exit_code", code)
			return code, nil
		}
	}
}

// exitCode extracts the process exit code from cmd.Wait's error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	// Wait failed for a reason other than a non-zero exit.
	return 1
}
