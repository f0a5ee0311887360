// Package memory keeps scan records and run bookkeeping in process memory. It
// honors the same first-write-wins contract as the Postgres store and backs
// dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/rootscan/internal/scanner"
)

// RecordStore holds at most one outcome per domain.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]scanner.Outcome
}

// NewRecordStore returns an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]scanner.Outcome)}
}

// Store keeps the first outcome seen for each domain.
func (s *RecordStore) Store(ctx context.Context, outcome scanner.Outcome) scanner.StoreResult {
	if err := ctx.Err(); err != nil {
		return scanner.Dropped(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[outcome.Domain]; ok {
		return scanner.Ignored()
	}
	s.records[outcome.Domain] = outcome
	return scanner.Stored()
}

// Get returns the stored outcome for domain.
func (s *RecordStore) Get(domain string) (scanner.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.records[domain]
	return out, ok
}

// Len reports the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
