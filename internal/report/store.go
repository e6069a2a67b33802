// Package report persists run history in SQLite so reward computations
// can be audited across runs.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/labeltally/labeltally/pkg/types"
)

// Run describes one pipeline execution.
type Run struct {
	ID          string
	JobIDs      []string
	PoolID      string
	EventCount  int
	WorkerCount int
	OutputPath  string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewRun creates a run record with a fresh ID and start timestamp.
func NewRun(jobIDs []string) Run {
	return Run{
		ID:        uuid.NewString(),
		JobIDs:    jobIDs,
		StartedAt: time.Now().UTC(),
	}
}

// Store persists runs and their aggregated rows.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run-history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("report: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("report: failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			job_ids      TEXT NOT NULL,
			pool_id      TEXT NOT NULL,
			event_count  INTEGER NOT NULL,
			worker_count INTEGER NOT NULL,
			output_path  TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS run_rows (
			run_id      TEXT NOT NULL REFERENCES runs(run_id),
			idx         INTEGER NOT NULL,
			username    TEXT NOT NULL,
			user_sub    TEXT NOT NULL,
			label_count INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
	`)
	return err
}

// RecordRun persists a completed run and its final rows in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, rows []types.AggregatedRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("report: begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, job_ids, pool_id, event_count, worker_count, output_path, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, strings.Join(run.JobIDs, ","), run.PoolID,
		run.EventCount, run.WorkerCount, run.OutputPath,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("report: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_rows (run_id, idx, username, user_sub, label_count)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("report: prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, run.ID, i, row.Username, row.Sub, row.Count); err != nil {
			return fmt.Errorf("report: insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("report: commit: %w", err)
	}
	return nil
}

// GetRun retrieves one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	var (
		run       Run
		jobIDs    string
		startedMs int64
		finishMs  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, job_ids, pool_id, event_count, worker_count, output_path, started_at, finished_at
		FROM runs WHERE run_id = ?`, runID).
		Scan(&run.ID, &jobIDs, &run.PoolID, &run.EventCount, &run.WorkerCount,
			&run.OutputPath, &startedMs, &finishMs)
	if err != nil {
		return Run{}, fmt.Errorf("report: get run %s: %w", runID, err)
	}

	if jobIDs != "" {
		run.JobIDs = strings.Split(jobIDs, ",")
	}
	run.StartedAt = time.UnixMilli(startedMs).UTC()
	run.FinishedAt = time.UnixMilli(finishMs).UTC()
	return run, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM runs ORDER BY started_at DESC, run_id LIMIT 1`).Scan(&runID)
	if err != nil {
		return Run{}, fmt.Errorf("report: latest run: %w", err)
	}
	return s.GetRun(ctx, runID)
}

// GetRunRows retrieves a run's aggregated rows in export order.
func (s *Store) GetRunRows(ctx context.Context, runID string) ([]types.AggregatedRow, error) {
	result, err := s.db.QueryContext(ctx, `
		SELECT username, user_sub, label_count
		FROM run_rows WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("report: get rows for run %s: %w", runID, err)
	}
	defer result.Close()

	var rows []types.AggregatedRow
	for result.Next() {
		var row types.AggregatedRow
		if err := result.Scan(&row.Username, &row.Sub, &row.Count); err != nil {
			return nil, fmt.Errorf("report: scan row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, result.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
