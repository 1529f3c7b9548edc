package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starpoint/launchpad/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is a fixed-width RFC3339 variant. Fixed width keeps the
// lexical ordering of stored timestamps identical to their time ordering,
// which ORDER BY created_at relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements RunStore using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Mapping
// =============================================================================

// runRow represents a run row in the database. Times are stored as
// fixed-width timeLayout strings.
type runRow struct {
	ID                string  `db:"id"`
	Entrypoint        string  `db:"entrypoint"`
	Address           string  `db:"address"`
	Port              int     `db:"port"`
	LogPath           string  `db:"log_path"`
	Status            string  `db:"status"`
	ExitCode          *int    `db:"exit_code"`
	ErrorMessage      string  `db:"error_message"`
	InstallWarning    string  `db:"install_warning"`
	RequirementsCount int     `db:"requirements_count"`
	CreatedAt         string  `db:"created_at"`
	UpdatedAt         string  `db:"updated_at"`
	StartedAt         *string `db:"started_at"`
	StoppedAt         *string `db:"stopped_at"`
}

func toRunRow(run *domain.Run) runRow {
	return runRow{
		ID:                run.ID,
		Entrypoint:        run.Entrypoint,
		Address:           run.Address,
		Port:              run.Port,
		LogPath:           run.LogPath,
		Status:            string(run.Status),
		ExitCode:          run.ExitCode,
		ErrorMessage:      run.ErrorMessage,
		InstallWarning:    run.InstallWarning,
		RequirementsCount: run.RequirementsCount,
		CreatedAt:         run.CreatedAt.Format(timeLayout),
		UpdatedAt:         run.UpdatedAt.Format(timeLayout),
		StartedAt:         formatTimePtr(run.StartedAt),
		StoppedAt:         formatTimePtr(run.StoppedAt),
	}
}

func (r runRow) toDomain() (*domain.Run, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, NewStoreError("toDomain", r.ID, "bad created_at", ErrInvalidData)
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, NewStoreError("toDomain", r.ID, "bad updated_at", ErrInvalidData)
	}
	startedAt, err := parseTimePtr(r.StartedAt)
	if err != nil {
		return nil, NewStoreError("toDomain", r.ID, "bad started_at", ErrInvalidData)
	}
	stoppedAt, err := parseTimePtr(r.StoppedAt)
	if err != nil {
		return nil, NewStoreError("toDomain", r.ID, "bad stopped_at", ErrInvalidData)
	}

	return &domain.Run{
		ID:                r.ID,
		Entrypoint:        r.Entrypoint,
		Address:           r.Address,
		Port:              r.Port,
		LogPath:           r.LogPath,
		Status:            domain.RunStatus(r.Status),
		ExitCode:          r.ExitCode,
		ErrorMessage:      r.ErrorMessage,
		InstallWarning:    r.InstallWarning,
		RequirementsCount: r.RequirementsCount,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		StartedAt:         startedAt,
		StoppedAt:         stoppedAt,
	}, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// =============================================================================
// Run Operations
// =============================================================================

func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (
			id, entrypoint, address, port, log_path, status, exit_code,
			error_message, install_warning, requirements_count,
			created_at, updated_at, started_at, stopped_at
		) VALUES (
			:id, :entrypoint, :address, :port, :log_path, :status, :exit_code,
			:error_message, :install_warning, :requirements_count,
			:created_at, :updated_at, :started_at, :stopped_at
		)`

	_, err := s.db.NamedExecContext(ctx, query, toRunRow(run))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.id") {
			return NewStoreError("CreateRun", run.ID, "run with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateRun", run.ID, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var row runRow
	query := `SELECT * FROM runs WHERE id = ?`

	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetRun", id, "run not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetRun", id, err.Error(), err)
	}
	return row.toDomain()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs SET
			entrypoint = :entrypoint,
			address = :address,
			port = :port,
			log_path = :log_path,
			status = :status,
			exit_code = :exit_code,
			error_message = :error_message,
			install_warning = :install_warning,
			requirements_count = :requirements_count,
			updated_at = :updated_at,
			started_at = :started_at,
			stopped_at = :stopped_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, query, toRunRow(run))
	if err != nil {
		return NewStoreError("UpdateRun", run.ID, err.Error(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("UpdateRun", run.ID, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("UpdateRun", run.ID, "run not found", ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]domain.Run, error) {
	opts = opts.Normalize()

	var rows []runRow
	query := `SELECT * FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`

	if err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListRuns", "", err.Error(), err)
	}

	runs := make([]domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*domain.Run, error) {
	var row runRow
	query := `SELECT * FROM runs ORDER BY created_at DESC LIMIT 1`

	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("LatestRun", "", "no runs recorded", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("LatestRun", "", err.Error(), err)
	}
	return row.toDomain()
}

func (s *SQLiteStore) MarkRunRunning(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE runs SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	result, err := s.db.ExecContext(ctx, query,
		string(domain.RunRunning),
		at.UTC().Format(timeLayout),
		id,
		string(domain.RunStarting),
	)
	if err != nil {
		return NewStoreError("MarkRunRunning", id, err.Error(), err)
	}
	// Zero rows affected means the run already moved on (exited before the
	// probe landed); not an error.
	_, err = result.RowsAffected()
	if err != nil {
		return NewStoreError("MarkRunRunning", id, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	query := `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC LIMIT ?
		)`

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, NewStoreError("PruneRuns", "", err.Error(), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, NewStoreError("PruneRuns", "", err.Error(), err)
	}
	return int(affected), nil
}
