package usage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process usage store for development and tests. Not
// suitable for multi-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]int64
}

// NewMemoryStore creates an empty in-memory usage store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func memoryKey(teamID int64, feature, period string) string {
	return fmt.Sprintf("%d:%s:%s", teamID, feature, period)
}

// CurrentUsage reads the counter, zero when absent
func (s *MemoryStore) CurrentUsage(_ context.Context, teamID int64, feature, period string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[memoryKey(teamID, feature, period)], nil
}

// AddUsage increments the counter
func (s *MemoryStore) AddUsage(_ context.Context, teamID int64, feature, period string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[memoryKey(teamID, feature, period)] += amount
	return nil
}
