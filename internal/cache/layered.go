package cache

import (
	"context"

	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

// Persistent binds a memory Store to a storage bucket
type Persistent[T any] struct {
	*Store[T]
	backend storage.Store
	bucket  string
}

// NewPersistent wraps s so it can be loaded from and flushed to bucket.
// A nil backend makes Load and Flush no-ops.
func NewPersistent[T any](s *Store[T], backend storage.Store, bucket string) *Persistent[T] {
	return &Persistent[T]{Store: s, backend: backend, bucket: bucket}
}

// Load restores live entries from the bucket and returns how many were kept
func (p *Persistent[T]) Load(ctx context.Context) (int, error) {
	if p.backend == nil {
		return 0, nil
	}

	var entries []Entry[T]
	found, err := storage.LoadJSON(ctx, p.backend, p.bucket, &entries)
	if err != nil || !found {
		return 0, err
	}
	return p.Restore(entries), nil
}

// Flush purges expired entries and writes the rest to the bucket
func (p *Persistent[T]) Flush(ctx context.Context) error {
	if p.backend == nil {
		return nil
	}

	p.PurgeExpired()
	entries := p.Snapshot()
	if entries == nil {
		entries = []Entry[T]{}
	}
	return storage.SaveJSON(ctx, p.backend, p.bucket, entries)
}

// ClearAll empties memory and removes the bucket
func (p *Persistent[T]) ClearAll(ctx context.Context) error {
	p.Store.Clear()
	if p.backend == nil {
		return nil
	}
	return p.backend.Remove(ctx, p.bucket)
}
