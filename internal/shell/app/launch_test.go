package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// writeStubApp creates an executable that plays the application's role,
// ignoring the framework CLI arguments it receives.
func writeStubApp(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	path := filepath.Join(t.TempDir(), "stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func testSpec(t *testing.T, interpreter string) LaunchSpec {
	t.Helper()
	dir := t.TempDir()
	return LaunchSpec{
		Interpreter: interpreter,
		Entrypoint:  "app.py",
		Address:     "0.0.0.0",
		Port:        8501,
		LogPath:     filepath.Join(dir, "server.log"),
		Dir:         dir,
	}
}

// =============================================================================
// Launch Tests
// =============================================================================

func TestLaunchSpec_Args(t *testing.T) {
	spec := LaunchSpec{Entrypoint: "app.py", Address: "0.0.0.0", Port: 8501}

	assert.Equal(t, []string{
		"-m", "streamlit", "run", "app.py",
		"--server.address=0.0.0.0",
		"--server.port=8501",
	}, spec.args())
}

func TestLaunch_CombinesStreamsIntoLog(t *testing.T) {
	stub := writeStubApp(t, `echo "listening"
echo "warning: something" >&2
echo "done"
`)
	launcher := NewLauncher(nil)
	spec := testSpec(t, stub)

	code, err := launcher.Launch(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	logData, err := os.ReadFile(spec.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "listening")
	assert.Contains(t, string(logData), "warning: something")
	assert.Contains(t, string(logData), "done")
}

func TestLaunch_ReportsExitCode(t *testing.T) {
	stub := writeStubApp(t, "exit 7\n")
	launcher := NewLauncher(nil)

	code, err := launcher.Launch(context.Background(), testSpec(t, stub))
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestLaunch_TruncatesPriorLog(t *testing.T) {
	stub := writeStubApp(t, `echo "fresh"
`)
	launcher := NewLauncher(nil)
	spec := testSpec(t, stub)

	require.NoError(t, os.WriteFile(spec.LogPath, []byte("stale content from last run\n"), 0o644))

	_, err := launcher.Launch(context.Background(), spec)
	require.NoError(t, err)

	logData, err := os.ReadFile(spec.LogPath)
	require.NoError(t, err)
	assert.NotContains(t, string(logData), "stale content")
	assert.Contains(t, string(logData), "fresh")
}

func TestLaunch_MissingInterpreter(t *testing.T) {
	launcher := NewLauncher(nil)
	spec := testSpec(t, filepath.Join(t.TempDir(), "no-such-python"))

	_, err := launcher.Launch(context.Background(), spec)
	assert.ErrorIs(t, err, ErrLaunchFailed)
}

func TestLaunch_ContextCancelStopsApp(t *testing.T) {
	stub := writeStubApp(t, "sleep 30\n")
	launcher := NewLauncher(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	code, err := launcher.Launch(ctx, testSpec(t, stub))
	require.NoError(t, err)
	assert.NotEqual(t, 0, code)
}
