// Package worker implements the per-goroutine claim, fetch, store loop.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/progress"
	"github.com/JakeFAU/rootscan/internal/scanner"
)

const defaultStoreTimeout = 10 * time.Second

// Config controls Worker behavior.
type Config struct {
	// ID is the worker ordinal used for log and event attribution.
	ID int
	// RunID tags emitted events.
	RunID [16]byte
	// StoreTimeout bounds a single store call. Stores run detached from the
	// run context so an outcome fetched before shutdown is still written.
	StoreTimeout time.Duration
}

// Worker drains domains from a shared queue.
type Worker struct {
	cfg     Config
	queue   scanner.Queue
	fetcher scanner.Fetcher
	store   scanner.Store
	emitter progress.Emitter
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Worker. A nil emitter discards events.
func New(
	cfg Config,
	queue scanner.Queue,
	fetcher scanner.Fetcher,
	store scanner.Store,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Worker {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if emitter == nil {
		emitter = progress.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		cfg:     cfg,
		queue:   queue,
		fetcher: fetcher,
		store:   store,
		emitter: emitter,
		logger:  logger.With(zap.Int("worker", cfg.ID)),
		now:     time.Now,
	}
}

// Run processes domains until the queue is empty or ctx is canceled, and
// returns how many domains this worker handled.
func (w *Worker) Run(ctx context.Context) int {
	processed := 0
	for {
		domain, ok := w.queue.Claim(ctx)
		if !ok {
			w.logger.Debug("worker exiting", zap.Int("processed", processed))
			return processed
		}
		w.process(ctx, domain)
		processed++
	}
}

func (w *Worker) process(ctx context.Context, domain string) {
	start := w.now()
	outcome, err := w.fetcher.Fetch(ctx, domain)
	elapsed := w.now().Sub(start)
	if err != nil {
		w.logger.Debug("fetch failed", zap.String("domain", domain), zap.Error(err))
	}
	if outcome.Domain != domain {
		outcome = scanner.Failed(domain)
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.StoreTimeout)
	result := w.store.Store(storeCtx, outcome)
	cancel()
	if result.Status == scanner.StoreDropped {
		w.logger.Warn("record dropped",
			zap.String("domain", domain),
			zap.Bool("success", outcome.Success),
			zap.Error(result.Err))
	}

	evt := progress.Event{
		RunID:       w.cfg.RunID,
		TS:          w.now().UTC(),
		Stage:       progress.StageScanDone,
		Domain:      domain,
		Worker:      w.cfg.ID,
		Success:     outcome.Success,
		StatusClass: progress.ClassifyOutcome(outcome),
		Bytes:       int64(outcome.BodyLen()),
		Dur:         elapsed,
		Store:       result.Status,
	}
	if err != nil {
		evt.Note = err.Error()
	}
	w.emitter.Emit(evt)
}
