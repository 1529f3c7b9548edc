package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Console Tests
// =============================================================================

func TestConsole_Messages(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, strings.NewReader(""), false)

	c.Noticef("starting %s", "app.py")
	c.Errorf("something broke: %v", assert.AnError)

	assert.Contains(t, out.String(), "starting app.py\n")
	assert.Contains(t, out.String(), "ERROR: something broke")
}

func TestConsole_PostRunNotice_CleanExit(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, strings.NewReader(""), false)

	c.PostRunNotice("server.log", 0)

	assert.Contains(t, out.String(), "Application stopped")
	assert.Contains(t, out.String(), "server.log")
	assert.NotContains(t, out.String(), "unexpected")
}

func TestConsole_PostRunNotice_UnexpectedExit(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, strings.NewReader(""), false)

	c.PostRunNotice("server.log", 1)

	assert.Contains(t, out.String(), "exited with code 1")
	assert.Contains(t, out.String(), "check server.log")
}

func TestConsole_WaitForAck_Disabled(t *testing.T) {
	var out bytes.Buffer
	// An empty reader would block a real pause; disabled must not read.
	c := NewConsole(&out, strings.NewReader(""), false)

	c.WaitForAck()
	assert.Empty(t, out.String())
}

func TestConsole_WaitForAck_ReadsUntilEnter(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, strings.NewReader("\n"), true)

	c.WaitForAck()
	assert.Contains(t, out.String(), "Press Enter")
}
