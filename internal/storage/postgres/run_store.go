package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/rootscan/internal/store"
)

const createRunsDDL = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	status      TEXT NOT NULL,
	total       BIGINT NOT NULL DEFAULT 0,
	processed   BIGINT NOT NULL DEFAULT 0,
	success     BIGINT NOT NULL DEFAULT 0,
	failure     BIGINT NOT NULL DEFAULT 0,
	stored      BIGINT NOT NULL DEFAULT 0,
	ignored     BIGINT NOT NULL DEFAULT 0,
	dropped     BIGINT NOT NULL DEFAULT 0,
	body_bytes  BIGINT NOT NULL DEFAULT 0
)`

type queryExecer interface {
	execer
	QueryRow(context.Context, string, ...any) pgx.Row
}

// RunStore implements store.RunRepository on the scan_runs table.
type RunStore struct {
	db queryExecer
}

// NewRunStore wraps an open pool.
func NewRunStore(db queryExecer) (*RunStore, error) {
	if db == nil {
		return nil, errors.New("pool is required")
	}
	return &RunStore{db: db}, nil
}

// EnsureRunsSchema creates the scan_runs table when it is missing.
func EnsureRunsSchema(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, createRunsDDL); err != nil {
		return fmt.Errorf("create scan_runs table: %w", err)
	}
	return nil
}

// StartRun inserts the run in the running state.
func (s *RunStore) StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time, total int64) error {
	query := `
		INSERT INTO scan_runs (id, started_at, status, total)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := s.db.Exec(ctx, query, id, startedAt, store.RunRunning, total); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records the final tally.
func (s *RunStore) FinishRun(ctx context.Context, id uuid.UUID, finishedAt time.Time, tally store.Tally) error {
	query := `
		UPDATE scan_runs
		SET finished_at = $1, status = $2, processed = $3, success = $4, failure = $5,
			stored = $6, ignored = $7, dropped = $8, body_bytes = $9
		WHERE id = $10;
	`
	tag, err := s.db.Exec(ctx, query,
		finishedAt,
		store.RunFinished,
		tally.Processed,
		tally.Success,
		tally.Failure,
		tally.Stored,
		tally.Ignored,
		tally.Dropped,
		tally.BodyBytes,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// GetRun loads one run.
func (s *RunStore) GetRun(ctx context.Context, id uuid.UUID) (store.Run, error) {
	query := `
		SELECT id, started_at, finished_at, status, total,
			processed, success, failure, stored, ignored, dropped, body_bytes
		FROM scan_runs
		WHERE id = $1;
	`
	var run store.Run
	err := s.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.Total,
		&run.Tally.Processed,
		&run.Tally.Success,
		&run.Tally.Failure,
		&run.Tally.Stored,
		&run.Tally.Ignored,
		&run.Tally.Dropped,
		&run.Tally.BodyBytes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, store.ErrNotFound
		}
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}
