package sinks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/progress"
	"github.com/JakeFAU/rootscan/internal/scanner"
	"github.com/JakeFAU/rootscan/internal/store"
)

// LedgerSink records run start and finish in a store.RunRepository. Per-domain
// events are folded into an in-memory tally that is written once on RUN_DONE.
type LedgerSink struct {
	repo   store.RunRepository
	logger *zap.Logger
	tally  map[uuid.UUID]*store.Tally
}

// NewLedgerSink constructs a LedgerSink for repo.
func NewLedgerSink(repo store.RunRepository, logger *zap.Logger) *LedgerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerSink{repo: repo, logger: logger, tally: make(map[uuid.UUID]*store.Tally)}
}

// Consume applies the batch; repository errors are returned to the hub.
func (s *LedgerSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		id := evt.RunUUID()
		switch evt.Stage {
		case progress.StageRunStart:
			if err := s.repo.StartRun(ctx, id, evt.TS, evt.Total); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
		case progress.StageScanDone:
			addToTally(s.tallyFor(id), evt)
		case progress.StageRunDone:
			final := *s.tallyFor(id)
			if err := s.repo.FinishRun(ctx, id, evt.TS, final); err != nil {
				return fmt.Errorf("finish run: %w", err)
			}
			delete(s.tally, id)
			s.logger.Info("run ledger updated",
				zap.String("run_id", id.String()),
				zap.Int64("processed", final.Processed))
		}
	}
	return nil
}

func (s *LedgerSink) tallyFor(id uuid.UUID) *store.Tally {
	t := s.tally[id]
	if t == nil {
		t = &store.Tally{}
		s.tally[id] = t
	}
	return t
}

func addToTally(t *store.Tally, evt progress.Event) {
	t.Processed++
	if evt.Success {
		t.Success++
	} else {
		t.Failure++
	}
	switch evt.Store {
	case scanner.StoreStored:
		t.Stored++
	case scanner.StoreIgnored:
		t.Ignored++
	case scanner.StoreDropped:
		t.Dropped++
	}
	t.BodyBytes += evt.Bytes
}

// Close is a no-op.
func (s *LedgerSink) Close(context.Context) error {
	return nil
}
