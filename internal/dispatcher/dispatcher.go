// Package dispatcher runs a fixed pool of workers over the shared queue.
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JakeFAU/rootscan/internal/worker"
)

// WorkerCount returns the pool size: override when positive, otherwise
// 2*cpus-1 and never less than one.
func WorkerCount(cpus, override int) int {
	if override > 0 {
		return override
	}
	return max(1, 2*cpus-1)
}

// Dispatcher fans the queue out to a pool of workers.
type Dispatcher struct {
	workers   []*worker.Worker
	wg        sync.WaitGroup
	started   atomic.Bool
	processed atomic.Int64
}

// New creates a Dispatcher for the given workers.
func New(workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{workers: workers}
}

// Size reports the number of workers.
func (d *Dispatcher) Size() int {
	return len(d.workers)
}

// Start launches every worker in its own goroutine and returns immediately.
// Calls after the first are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range d.workers {
		d.wg.Add(1)
		go func(wk *worker.Worker) {
			defer d.wg.Done()
			d.processed.Add(int64(wk.Run(ctx)))
		}(w)
	}
}

// Wait blocks until every started worker has returned and reports the number
// of domains processed.
func (d *Dispatcher) Wait() int64 {
	d.wg.Wait()
	return d.processed.Load()
}

// Run starts the pool and waits for it to drain.
func (d *Dispatcher) Run(ctx context.Context) int64 {
	d.Start(ctx)
	return d.Wait()
}
