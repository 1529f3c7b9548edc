package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Run Errors
// =============================================================================

var (
	ErrEmptyEntrypoint   = errors.New("entrypoint is required")
	ErrInvalidPort       = errors.New("port must be between 1 and 65535")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// Run Status
// =============================================================================

// RunStatus represents the lifecycle state of a single launch.
type RunStatus string

const (
	// RunPending means the run record exists but no work has started.
	RunPending RunStatus = "pending"
	// RunPreparing means the virtual environment is being created or verified.
	RunPreparing RunStatus = "preparing"
	// RunInstalling means dependency installation is in progress.
	RunInstalling RunStatus = "installing"
	// RunStarting means the application process has been spawned but has not
	// yet answered an HTTP probe.
	RunStarting RunStatus = "starting"
	// RunRunning means the application answered at least one HTTP probe.
	RunRunning RunStatus = "running"
	// RunExited means the application process exited (any exit code).
	RunExited RunStatus = "exited"
	// RunFailed means the launch aborted before the application exited on
	// its own, for example because the environment could not be prepared.
	RunFailed RunStatus = "failed"
)

// validRunTransitions maps each status to the statuses it may move to.
var validRunTransitions = map[RunStatus][]RunStatus{
	RunPending:    {RunPreparing, RunFailed},
	RunPreparing:  {RunInstalling, RunStarting, RunFailed},
	RunInstalling: {RunStarting, RunFailed},
	RunStarting:   {RunRunning, RunExited, RunFailed},
	RunRunning:    {RunExited, RunFailed},
	RunExited:     {},
	RunFailed:     {},
}

// =============================================================================
// Run
// =============================================================================

// Run represents one launch of the application, from environment
// preparation to process exit.
type Run struct {
	ID                string     `json:"id"`
	Entrypoint        string     `json:"entrypoint"`
	Address           string     `json:"address"`
	Port              int        `json:"port"`
	LogPath           string     `json:"log_path"`
	Status            RunStatus  `json:"status"`
	ExitCode          *int       `json:"exit_code,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	InstallWarning    string     `json:"install_warning,omitempty"`
	RequirementsCount int        `json:"requirements_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	StoppedAt         *time.Time `json:"stopped_at,omitempty"`
}

// NewRun creates a pending run for the given launch target.
func NewRun(entrypoint, address string, port int, logPath string) (*Run, error) {
	if entrypoint == "" {
		return nil, ErrEmptyEntrypoint
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}

	now := time.Now().UTC()
	return &Run{
		ID:         uuid.New().String(),
		Entrypoint: entrypoint,
		Address:    address,
		Port:       port,
		LogPath:    logPath,
		Status:     RunPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// transition moves the run to the target status after validating the move.
func (r *Run) transition(to RunStatus) error {
	for _, allowed := range validRunTransitions[r.Status] {
		if allowed == to {
			r.Status = to
			r.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
}

// MarkPreparing records that environment preparation has begun.
func (r *Run) MarkPreparing() error {
	return r.transition(RunPreparing)
}

// MarkInstalling records that dependency installation has begun.
func (r *Run) MarkInstalling() error {
	return r.transition(RunInstalling)
}

// MarkStarting records that the application process was spawned.
func (r *Run) MarkStarting() error {
	if err := r.transition(RunStarting); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.StartedAt = &now
	return nil
}

// MarkRunning records that the application answered a readiness probe.
func (r *Run) MarkRunning() error {
	return r.transition(RunRunning)
}

// MarkExited records the application's exit code. The application exiting is
// a terminal state regardless of the code.
func (r *Run) MarkExited(exitCode int) error {
	if err := r.transition(RunExited); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.StoppedAt = &now
	r.ExitCode = &exitCode
	return nil
}

// MarkFailed records that the launch aborted before the application exited
// on its own.
func (r *Run) MarkFailed(message string) error {
	if err := r.transition(RunFailed); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.StoppedAt = &now
	r.ErrorMessage = message
	return nil
}

// Terminal reports whether the run has reached a terminal status.
func (r *Run) Terminal() bool {
	return r.Status == RunExited || r.Status == RunFailed
}

// Duration returns the wall-clock time between process start and stop, or
// zero if the process never started or has not stopped.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.StoppedAt == nil {
		return 0
	}
	return r.StoppedAt.Sub(*r.StartedAt)
}
