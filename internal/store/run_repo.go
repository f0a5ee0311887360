package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested run does not exist.
var ErrNotFound = errors.New("scan run not found")

// RunStatus mirrors the scan_runs status column.
type RunStatus string

// Run statuses persisted in scan_runs.status.
const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
)

// Tally counts per-domain results for a run.
type Tally struct {
	Processed int64 `json:"processed"`
	Success   int64 `json:"success"`
	Failure   int64 `json:"failure"`
	Stored    int64 `json:"stored"`
	Ignored   int64 `json:"ignored"`
	Dropped   int64 `json:"dropped"`
	BodyBytes int64 `json:"body_bytes"`
}

// Run models one row of scan_runs.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Total      int64
	Tally      Tally
}

// RunRepository persists the run ledger.
type RunRepository interface {
	// StartRun records a new run with the size of its queue. Repeated calls
	// for the same id are no-ops.
	StartRun(ctx context.Context, id uuid.UUID, startedAt time.Time, total int64) error
	// FinishRun stamps the run finished with its final tally.
	FinishRun(ctx context.Context, id uuid.UUID, finishedAt time.Time, tally Tally) error
	// GetRun loads a run or returns ErrNotFound.
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
}
