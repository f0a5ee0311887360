package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/rootscan/internal/store"
)

// RunStore is an in-memory store.RunRepository.
type RunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]store.Run
}

// NewRunStore returns an empty ledger.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[uuid.UUID]store.Run)}
}

// StartRun records a running entry unless one exists.
func (s *RunStore) StartRun(_ context.Context, id uuid.UUID, startedAt time.Time, total int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; ok {
		return nil
	}
	s.runs[id] = store.Run{ID: id, StartedAt: startedAt, Status: store.RunRunning, Total: total}
	return nil
}

// FinishRun stores the final tally.
func (s *RunStore) FinishRun(_ context.Context, id uuid.UUID, finishedAt time.Time, tally store.Tally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	run.FinishedAt = &finishedAt
	run.Status = store.RunFinished
	run.Tally = tally
	s.runs[id] = run
	return nil
}

// GetRun loads a run by id.
func (s *RunStore) GetRun(_ context.Context, id uuid.UUID) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, store.ErrNotFound
	}
	return run, nil
}
