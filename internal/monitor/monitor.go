// Package monitor watches the work queue drain and reports scan progress.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the queue polling period.
const DefaultInterval = time.Second

// Sizer exposes the number of unclaimed domains.
type Sizer interface {
	Len() int
}

// Reporter renders progress. Update receives the total minus the current
// queue size.
type Reporter interface {
	Start(total int)
	Update(position int)
	Finish()
}

// Monitor polls a queue until it is empty.
type Monitor struct {
	queue    Sizer
	reporter Reporter
	interval time.Duration
	logger   *zap.Logger
}

// New builds a Monitor. A non-positive interval selects DefaultInterval.
func New(queue Sizer, reporter Reporter, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{queue: queue, reporter: reporter, interval: interval, logger: logger}
}

// Run reports total-current on every poll and returns nil once the queue is
// observed empty, after reporting total. total is the queue size when the
// pool was spawned; workers may already have claimed domains by the time Run
// starts. It returns the context error if ctx ends first.
func (m *Monitor) Run(ctx context.Context, total int) error {
	m.reporter.Start(total)
	defer m.reporter.Finish()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		current := m.queue.Len()
		m.reporter.Update(total - current)
		if current == 0 {
			m.logger.Info("queue drained", zap.Int("domains", total))
			return nil
		}
		select {
		case <-ctx.Done():
			m.logger.Warn("monitor stopped before queue drained",
				zap.Int("remaining", current),
				zap.Error(ctx.Err()))
			return fmt.Errorf("monitor: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
