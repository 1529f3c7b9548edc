// Package python executes the system and virtual-environment Python
// tooling: venv creation, activation checks and pip installs. All process
// invocations go through the Runner interface so callers can substitute a
// fake in tests.
package python

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// =============================================================================
// Runner Interface
// =============================================================================

// Command describes a single external process invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Result holds the outcome of a completed process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes external commands. A non-zero exit code is reported in
// the Result, not as an error; errors mean the process could not run at
// all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// =============================================================================
// OS Runner
// =============================================================================

// execRunner is the os/exec implementation of Runner.
type execRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() Runner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, err
	}
	return res, nil
}
