package tree

import (
	"sync"
)

// QuantileStore is a read-only keyed lookup of precomputed, sorted quantile
// split points, one entry per column. In a cluster deployment this fronts
// the distributed key-value store that the global quantile task publishes
// into; here it is an in-memory map safe for concurrent readers.
type QuantileStore struct {
	mu sync.RWMutex
	m  map[string][]float64
}

// NewQuantileStore creates an empty store.
func NewQuantileStore() *QuantileStore {
	return &QuantileStore{m: make(map[string][]float64)}
}

// Put registers the sorted split points for a key. The slice is stored as-is;
// callers must not mutate it afterwards.
func (s *QuantileStore) Put(key string, splitPts []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = splitPts
}

// Get returns the split points for a key, or (nil, false) when absent.
func (s *QuantileStore) Get(key string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pts, ok := s.m[key]
	return pts, ok
}
