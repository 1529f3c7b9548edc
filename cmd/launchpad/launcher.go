package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/starpoint/launchpad/internal/core/domain"
	"github.com/starpoint/launchpad/internal/core/manifest"
	"github.com/starpoint/launchpad/internal/core/pyenv"
	"github.com/starpoint/launchpad/internal/shell/app"
	"github.com/starpoint/launchpad/internal/shell/python"
	"github.com/starpoint/launchpad/internal/shell/store"
	"github.com/starpoint/launchpad/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

// Setup failures use codes well above the range applications commonly
// return, so the two families cannot be confused. The normal exit code is
// whatever the application returned.
const (
	ExitSuccess       = 0
	ExitConfigError   = 64
	ExitVenvError     = 65
	ExitActivateError = 66
	ExitLaunchError   = 67
	ExitHistoryError  = 68
)

// LauncherError wraps a failure with the exit code it maps to.
type LauncherError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *LauncherError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LauncherError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Launcher
// =============================================================================

// Launcher orchestrates one launch: pin the base directory, ensure the
// virtual environment, sync dependencies, run the application, and report.
type Launcher struct {
	config  *Config
	baseDir string
	layout  pyenv.Layout
	python  *python.Tool
	apps    *app.Launcher
	store   store.RunStore // nil when history is disabled or unavailable
	console *Console
	logger  *slog.Logger
}

// NewLauncher creates a launcher with the given config.
func NewLauncher(cfg *Config, console *Console, logger *slog.Logger) (*Launcher, error) {
	baseDir, err := cfg.ResolveBaseDir()
	if err != nil {
		return nil, &LauncherError{
			Op:       "NewLauncher",
			Err:      err,
			ExitCode: ExitConfigError,
		}
	}

	layout := pyenv.NewLayout(baseDir)
	runner := python.NewExecRunner()

	l := &Launcher{
		config:  cfg,
		baseDir: baseDir,
		layout:  layout,
		python:  python.NewTool(baseDir, layout, runner, logger),
		apps:    app.NewLauncher(logger),
		console: console,
		logger:  logger,
	}

	// Launch history is supplemental; a broken database must never block
	// the launch itself.
	if cfg.History.Enabled {
		s, err := store.NewSQLiteStore(cfg.HistoryDSN(baseDir))
		if err != nil {
			logger.Warn("launch history unavailable", "error", err)
		} else {
			l.store = s
		}
	}

	return l, nil
}

// Close releases the launcher's resources.
func (l *Launcher) Close() {
	if l.store != nil {
		if err := l.store.Close(); err != nil {
			l.logger.Warn("failed to close history store", "error", err)
		}
	}
}

// Run executes the launch sequence and returns the process exit code for
// the whole tool: the application's own code, or one of the setup codes
// when the environment could not be prepared.
func (l *Launcher) Run(ctx context.Context) int {
	logPath := filepath.Join(l.baseDir, l.config.App.LogFile)
	manifestPath := filepath.Join(l.baseDir, l.config.Python.Requirements)

	l.logger.Info("starting launch",
		"base_dir", l.baseDir,
		"entrypoint", l.config.App.Entrypoint,
		"address", l.config.Server.Address,
		"port", l.config.Server.Port,
	)

	run := l.newRun(ctx, logPath)

	// Observe the filesystem, then plan.
	facts := pyenv.Facts{
		InterpreterPresent: fileExists(l.layout.Interpreter()),
		ManifestPresent:    fileExists(manifestPath),
	}
	plan := pyenv.BuildPlan(facts)
	l.logger.Debug("setup plan",
		"create_venv", plan.CreateVenv,
		"install_manifest", plan.InstallManifest,
	)

	l.markRun(ctx, run, run.MarkPreparing)

	// Ensure the virtual environment.
	if plan.CreateVenv {
		systemPython, err := l.python.SystemInterpreter(
			l.config.Python.Interpreter,
			pyenv.InterpreterCandidates(runtime.GOOS),
		)
		if err == nil {
			err = l.python.CreateVenv(ctx, systemPython)
		}
		if err != nil {
			return l.fatal(ctx, run, ExitVenvError, err,
				"Could not create the virtual environment in %s.", l.layout.Root())
		}
	} else {
		l.logger.Info("virtual environment already present", "dir", l.layout.Root())
	}

	// Activate.
	env, err := l.python.Activate(ctx)
	if err != nil {
		return l.fatal(ctx, run, ExitActivateError, err,
			"Could not activate the virtual environment in %s.", l.layout.Root())
	}

	// Upgrade tooling, best effort.
	if err := l.python.UpgradeTooling(ctx, env); err != nil {
		l.logger.Warn("tooling upgrade failed, continuing", "error", err)
		l.noteInstallWarning(run, err)
	}

	// Install from the manifest if it exists.
	if plan.InstallManifest {
		l.markRun(ctx, run, run.MarkInstalling)
		l.describeManifest(manifestPath, run)

		if err := l.python.InstallRequirements(ctx, env, manifestPath); err != nil {
			l.logger.Warn("dependency install failed, continuing", "error", err)
			l.noteInstallWarning(run, err)
		}
	} else {
		l.logger.Info("no dependency manifest, skipping install", "path", manifestPath)
	}

	// Launch and block until the application exits.
	l.markRun(ctx, run, run.MarkStarting)

	prober := l.startProber(run)
	exitCode, err := l.apps.Launch(ctx, app.LaunchSpec{
		Interpreter: l.layout.Interpreter(),
		Entrypoint:  l.config.App.Entrypoint,
		Address:     l.config.Server.Address,
		Port:        l.config.Server.Port,
		LogPath:     logPath,
		Dir:         l.baseDir,
		Env:         env,
	})
	if prober != nil {
		prober.Stop()
	}
	if err != nil {
		return l.fatal(ctx, run, ExitLaunchError, err,
			"Could not start the application %s.", l.config.App.Entrypoint)
	}

	l.finishRun(ctx, run, exitCode)

	l.console.PostRunNotice(logPath, exitCode)
	l.console.WaitForAck()
	return exitCode
}

// =============================================================================
// Internals
// =============================================================================

// newRun opens a history record for this launch, or returns nil when
// history is off.
func (l *Launcher) newRun(ctx context.Context, logPath string) *domain.Run {
	if l.store == nil {
		return nil
	}
	run, err := domain.NewRun(
		l.config.App.Entrypoint,
		l.config.Server.Address,
		l.config.Server.Port,
		logPath,
	)
	if err != nil {
		l.logger.Warn("failed to build run record", "error", err)
		return nil
	}
	if err := l.store.CreateRun(ctx, run); err != nil {
		l.logger.Warn("failed to record run", "error", err)
		return nil
	}
	return run
}

// markRun applies a status transition and persists it.
func (l *Launcher) markRun(ctx context.Context, run *domain.Run, transition func() error) {
	if run == nil {
		return
	}
	if err := transition(); err != nil {
		l.logger.Warn("run transition rejected", "run_id", run.ID, "error", err)
		return
	}
	if err := l.store.UpdateRun(ctx, run); err != nil {
		l.logger.Warn("failed to update run", "run_id", run.ID, "error", err)
	}
}

// noteInstallWarning folds a best-effort failure into the run record.
func (l *Launcher) noteInstallWarning(run *domain.Run, err error) {
	if run == nil {
		return
	}
	if run.InstallWarning != "" {
		run.InstallWarning += "; "
	}
	run.InstallWarning += err.Error()
}

// describeManifest notes the manifest's contents on the run record and in
// the log. Informational only.
func (l *Launcher) describeManifest(manifestPath string, run *domain.Run) {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		l.logger.Warn("could not read manifest for summary", "error", err)
		return
	}
	summary := manifest.Parse(string(content))
	l.logger.Info("installing dependencies",
		"manifest", manifestPath,
		"requirements", summary.Count(),
	)
	if run != nil {
		run.RequirementsCount = summary.Count()
	}
}

// startProber begins readiness probing for the imminent launch.
func (l *Launcher) startProber(run *domain.Run) *workers.ReadinessProber {
	runID := ""
	if run != nil {
		runID = run.ID
	}
	prober := workers.NewReadinessProber(
		l.config.Server.Port,
		runID,
		l.store,
		workers.ReadinessProberConfig{
			Interval:     l.config.Server.ReadinessInterval,
			ProbeTimeout: l.config.Server.ReadinessProbeTimeout,
		},
		l.logger,
	)
	prober.Start()
	return prober
}

// finishRun closes out the history record after a normal application exit.
func (l *Launcher) finishRun(ctx context.Context, run *domain.Run, exitCode int) {
	if run == nil {
		return
	}
	if err := run.MarkExited(exitCode); err != nil {
		l.logger.Warn("run transition rejected", "run_id", run.ID, "error", err)
	} else if err := l.store.UpdateRun(ctx, run); err != nil {
		l.logger.Warn("failed to update run", "run_id", run.ID, "error", err)
	}
	if _, err := l.store.PruneRuns(ctx, l.config.History.Keep); err != nil {
		l.logger.Warn("failed to prune history", "error", err)
	}
}

// fatal handles the operator-notified abort paths: log, record, tell the
// operator, pause, and hand back the setup exit code.
func (l *Launcher) fatal(ctx context.Context, run *domain.Run, exitCode int, err error, format string, args ...any) int {
	l.logger.Error("launch aborted", "error", err)

	if run != nil {
		if mErr := run.MarkFailed(err.Error()); mErr == nil {
			if uErr := l.store.UpdateRun(ctx, run); uErr != nil {
				l.logger.Warn("failed to update run", "run_id", run.ID, "error", uErr)
			}
		}
	}

	l.console.Errorf(format, args...)
	l.console.Errorf("%v", err)
	l.console.WaitForAck()
	return exitCode
}

// fileExists reports whether the path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
