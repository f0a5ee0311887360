// Package memory provides the in-process work queue shared by scan workers.
package memory

import (
	"context"
	"sync"
)

// Queue is a fixed, shrinking queue of domains. It is loaded once and then only
// drained; each domain is handed to exactly one caller of Claim.
type Queue struct {
	ch      chan string
	closeMu sync.Mutex
	closed  bool
}

// NewQueue loads domains in order. The returned queue is sealed: nothing can
// be added after construction.
func NewQueue(domains []string) *Queue {
	q := &Queue{ch: make(chan string, len(domains))}
	for _, d := range domains {
		q.ch <- d
	}
	q.Close()
	return q
}

// Claim removes and returns the front domain. ok is false when the queue is
// drained or ctx is already done.
func (q *Queue) Claim(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	select {
	case <-ctx.Done():
		return "", false
	case d, ok := <-q.ch:
		return d, ok
	}
}

// Len reports the number of unclaimed domains.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close seals the queue. It is safe to call more than once.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
