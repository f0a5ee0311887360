package scanner

import "context"

// Queue hands out domains to workers. Claim removes the front domain; ok is
// false once the queue is empty. Concurrent claims never observe the same domain.
type Queue interface {
	Claim(ctx context.Context) (domain string, ok bool)
	Len() int
}

// Fetcher probes one domain. It always returns a usable Outcome; a non-nil
// error means the probe failed at the transport level and the Outcome is the
// failure form.
type Fetcher interface {
	Fetch(ctx context.Context, domain string) (Outcome, error)
}

// Store persists outcomes with first-write-wins semantics per domain.
type Store interface {
	Store(ctx context.Context, outcome Outcome) StoreResult
}
