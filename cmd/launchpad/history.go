package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starpoint/launchpad/internal/core/domain"
	"github.com/starpoint/launchpad/internal/shell/store"
)

// =============================================================================
// History Output
// =============================================================================

// historyEntry is the YAML shape of one run in -history output.
type historyEntry struct {
	ID           string `yaml:"id"`
	Status       string `yaml:"status"`
	Entrypoint   string `yaml:"entrypoint"`
	Listen       string `yaml:"listen"`
	ExitCode     *int   `yaml:"exit_code,omitempty"`
	Error        string `yaml:"error,omitempty"`
	Requirements int    `yaml:"requirements,omitempty"`
	Started      string `yaml:"started,omitempty"`
	Duration     string `yaml:"duration,omitempty"`
	Log          string `yaml:"log"`
}

// newHistoryEntry converts a run for display.
func newHistoryEntry(run domain.Run) historyEntry {
	e := historyEntry{
		ID:           run.ID,
		Status:       string(run.Status),
		Entrypoint:   run.Entrypoint,
		Listen:       fmt.Sprintf("%s:%d", run.Address, run.Port),
		ExitCode:     run.ExitCode,
		Error:        run.ErrorMessage,
		Requirements: run.RequirementsCount,
		Log:          run.LogPath,
	}
	if run.StartedAt != nil {
		e.Started = run.StartedAt.Format(time.RFC3339)
	}
	if d := run.Duration(); d > 0 {
		e.Duration = d.Round(time.Second).String()
	}
	return e
}

// printHistory renders runs as YAML, newest first.
func printHistory(w io.Writer, runs []domain.Run) error {
	entries := make([]historyEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, newHistoryEntry(run))
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// runHistory implements the -history flag: print recent launches and exit.
func runHistory(cfg *Config, logger *slog.Logger, w io.Writer) int {
	if !cfg.History.Enabled {
		fmt.Fprintln(w, "launch history is disabled (history.enabled=false)")
		return ExitSuccess
	}

	baseDir, err := cfg.ResolveBaseDir()
	if err != nil {
		logger.Error("failed to resolve base directory", "error", err)
		return ExitConfigError
	}

	s, err := store.NewSQLiteStore(cfg.HistoryDSN(baseDir))
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		return ExitHistoryError
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), store.ListOptions{Limit: cfg.History.Keep})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("failed to list runs", "error", err)
		return ExitHistoryError
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "no launches recorded yet")
		return ExitSuccess
	}

	if err := printHistory(w, runs); err != nil {
		logger.Error("failed to print history", "error", err)
		return ExitHistoryError
	}
	return ExitSuccess
}
