package store

import (
	"context"
	"testing"
	"time"

	"github.com/starpoint/launchpad/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func createTestRun(t *testing.T, store RunStore) *domain.Run {
	t.Helper()
	run, err := domain.NewRun("app.py", "0.0.0.0", 8501, "server.log")
	require.NoError(t, err)
	require.NoError(t, store.CreateRun(context.Background(), run))
	return run
}

// =============================================================================
// Run CRUD Tests
// =============================================================================

func TestCreateRun_AndGet(t *testing.T) {
	store := setupTestStore(t)
	run := createTestRun(t, store)

	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "app.py", got.Entrypoint)
	assert.Equal(t, "0.0.0.0", got.Address)
	assert.Equal(t, 8501, got.Port)
	assert.Equal(t, domain.RunPending, got.Status)
	assert.Nil(t, got.ExitCode)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestCreateRun_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	run := createTestRun(t, store)

	err := store.CreateRun(context.Background(), run)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestGetRun_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRun_FullLifecycle(t *testing.T) {
	store := setupTestStore(t)
	run := createTestRun(t, store)

	require.NoError(t, run.MarkPreparing())
	require.NoError(t, run.MarkStarting())
	require.NoError(t, run.MarkExited(2))
	require.NoError(t, store.UpdateRun(context.Background(), run))

	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.RunExited, got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 2, *got.ExitCode)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.StoppedAt)
}

func TestUpdateRun_NotFound(t *testing.T) {
	store := setupTestStore(t)
	run, err := domain.NewRun("app.py", "0.0.0.0", 8501, "server.log")
	require.NoError(t, err)

	err = store.UpdateRun(context.Background(), run)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Listing Tests
// =============================================================================

func TestListRuns_NewestFirst(t *testing.T) {
	store := setupTestStore(t)

	first := createTestRun(t, store)
	time.Sleep(5 * time.Millisecond)
	second := createTestRun(t, store)

	runs, err := store.ListRuns(context.Background(), DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestListRuns_Pagination(t *testing.T) {
	store := setupTestStore(t)
	for i := 0; i < 5; i++ {
		createTestRun(t, store)
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.ListRuns(context.Background(), ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestLatestRun(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	createTestRun(t, store)
	time.Sleep(5 * time.Millisecond)
	newest := createTestRun(t, store)

	got, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newest.ID, got.ID)
}

// =============================================================================
// Readiness Marker Tests
// =============================================================================

func TestMarkRunRunning(t *testing.T) {
	store := setupTestStore(t)
	run := createTestRun(t, store)

	require.NoError(t, run.MarkPreparing())
	require.NoError(t, run.MarkStarting())
	require.NoError(t, store.UpdateRun(context.Background(), run))

	require.NoError(t, store.MarkRunRunning(context.Background(), run.ID, time.Now()))

	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, got.Status)
}

func TestMarkRunRunning_AfterExitIsNoop(t *testing.T) {
	store := setupTestStore(t)
	run := createTestRun(t, store)

	require.NoError(t, run.MarkPreparing())
	require.NoError(t, run.MarkStarting())
	require.NoError(t, run.MarkExited(0))
	require.NoError(t, store.UpdateRun(context.Background(), run))

	// The probe landing after exit must not resurrect the run.
	require.NoError(t, store.MarkRunRunning(context.Background(), run.ID, time.Now()))

	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunExited, got.Status)
}

// =============================================================================
// Pruning Tests
// =============================================================================

func TestPruneRuns(t *testing.T) {
	store := setupTestStore(t)
	for i := 0; i < 5; i++ {
		createTestRun(t, store)
		time.Sleep(2 * time.Millisecond)
	}

	deleted, err := store.PruneRuns(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	runs, err := store.ListRuns(context.Background(), DefaultListOptions())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPruneRuns_KeepMoreThanExist(t *testing.T) {
	store := setupTestStore(t)
	createTestRun(t, store)

	deleted, err := store.PruneRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
