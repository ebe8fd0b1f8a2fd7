package counter

import (
	"context"
	"sync"
)

// MemoryStore is an in-process counter store for tests and throwaway runs.
// Counters restart with the process; deployments that must not repeat a
// number across restarts use the sqlite store.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int64)}
}

// Next implements Store.
func (s *MemoryStore) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
