package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps buckets in process memory. Used for tests and --no-persist runs.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string][]byte
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, bucket string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.buckets[bucket]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, bucket string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, bucket)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
