package sinks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JakeFAU/rootscan/internal/progress"
	"github.com/JakeFAU/rootscan/internal/store"
)

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	RunID uuid.UUID `json:"run_id"`
	Total int64     `json:"total"`
	Done  bool      `json:"done"`
	store.Tally
}

// StatsSink keeps running totals for the current run.
type StatsSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatsSink returns zeroed counters.
func NewStatsSink() *StatsSink {
	return &StatsSink{}
}

// Consume folds the batch into the counters.
func (s *StatsSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.snap = Snapshot{RunID: evt.RunUUID(), Total: evt.Total}
		case progress.StageRunDone:
			s.snap.Done = true
		case progress.StageScanDone:
			addToTally(&s.snap.Tally, evt)
		}
	}
	return nil
}

// Snapshot copies the current counters.
func (s *StatsSink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close is a no-op.
func (s *StatsSink) Close(context.Context) error {
	return nil
}
