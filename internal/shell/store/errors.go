// Package store provides persistence for launch history.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("run not found")

	// ErrDuplicateID is returned when creating a run with an existing ID.
	ErrDuplicateID = errors.New("run with this ID already exists")

	// ErrConnectionFailed is returned when database connection fails.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when stored data cannot be decoded.
	ErrInvalidData = errors.New("invalid data format")
)

// StoreError wraps errors with additional context.
type StoreError struct {
	Op      string // Operation that failed (e.g., "CreateRun")
	ID      string // Run ID if applicable
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, id, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
