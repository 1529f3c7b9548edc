package main

import (
	"bufio"
	"fmt"
	"io"
)

// =============================================================================
// Console
// =============================================================================

// Console handles operator-facing messages and the end-of-run pause. It is
// separate from logging: these messages are the tool's user interface and
// are printed whatever the log level.
type Console struct {
	out   io.Writer
	in    *bufio.Reader
	pause bool
}

// NewConsole creates a Console. When pause is false, WaitForAck returns
// immediately; used for non-interactive runs and tests.
func NewConsole(out io.Writer, in io.Reader, pause bool) *Console {
	return &Console{
		out:   out,
		in:    bufio.NewReader(in),
		pause: pause,
	}
}

// Noticef prints an informational message.
func (c *Console) Noticef(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Errorf prints an error message.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintf(c.out, "ERROR: "+format+"\n", args...)
}

// PostRunNotice tells the operator where to look after the application has
// returned control.
func (c *Console) PostRunNotice(logPath string, exitCode int) {
	if exitCode == 0 {
		c.Noticef("Application stopped. Output was written to %s.", logPath)
		return
	}
	c.Noticef("Application exited with code %d. If this was unexpected, check %s for details.", exitCode, logPath)
}

// WaitForAck blocks until the operator presses Enter, keeping a console
// window open long enough to read the last message.
func (c *Console) WaitForAck() {
	if !c.pause {
		return
	}
	fmt.Fprint(c.out, "Press Enter to close...")
	_, _ = c.in.ReadString('\n')
}
