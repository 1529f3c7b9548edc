package store

import (
	"context"
	"time"

	"github.com/starpoint/launchpad/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// RunStore defines the persistence interface for launch history.
type RunStore interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	UpdateRun(ctx context.Context, run *domain.Run) error
	ListRuns(ctx context.Context, opts ListOptions) ([]domain.Run, error)
	LatestRun(ctx context.Context) (*domain.Run, error)

	// MarkRunRunning flips a run to running without round-tripping the
	// whole entity; used by the readiness prober, which races the main
	// launch goroutine.
	MarkRunRunning(ctx context.Context, id string, at time.Time) error

	// PruneRuns deletes all but the most recent keep runs.
	PruneRuns(ctx context.Context, keep int) (int, error)

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options for history listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  50,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
