// Package memory implements the run ledger in process memory.
package memory

import (
	"context"
	"sync"

	"protoforge/internal/runlog/core"
)

// Compile-time contract assertion.
var _ core.Recorder = (*Store)(nil)

// Store keeps runs in a slice, in recording order. Intended for tests and
// the default configuration where no ledger durability is wanted.
type Store struct {
	mu   sync.RWMutex
	runs []core.Run
}

// NewStore returns an empty in-memory ledger.
func NewStore() *Store { return &Store{} }

// Record appends a run.
func (s *Store) Record(_ context.Context, run core.Run) error {
	s.mu.Lock()
	s.runs = append(s.runs, run)
	s.mu.Unlock()
	return nil
}

// List returns a copy of all recorded runs in recording order.
func (s *Store) List(_ context.Context) ([]core.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Run, len(s.runs))
	copy(out, s.runs)
	return out, nil
}

// Close is a no-op for the memory ledger.
func (s *Store) Close() error { return nil }
