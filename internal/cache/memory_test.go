package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestKey(t *testing.T) {
	k1 := Key("title", "snippet", "https://a.com")
	k2 := Key("title", "snippet", "https://a.com")
	k3 := Key("title", "snippet", "https://b.com")

	if k1 != k2 {
		t.Error("expected identical inputs to produce identical keys")
	}
	if k1 == k3 {
		t.Error("expected different inputs to produce different keys")
	}
	if !strings.HasPrefix(k1, "eoq:v1:") {
		t.Errorf("unexpected key prefix: %s", k1)
	}
}

func TestStore_ExpiryOnRead(t *testing.T) {
	clock := newFakeClock()
	s := New[string](model.CacheConfig{TTL: time.Hour, Capacity: 10}, WithClock(clock.Now))

	s.Set("k", "v")
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	clock.Advance(time.Hour)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected expired entry to be absent")
	}
	if s.Len() != 0 {
		t.Errorf("expected expired entry to be evicted on read, len=%d", s.Len())
	}

	stats := s.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStore_EvictsSoonestExpiring(t *testing.T) {
	clock := newFakeClock()
	s := New[int](model.CacheConfig{TTL: time.Hour, Capacity: 5, Retain: 3}, WithClock(clock.Now))

	for i := 0; i < 6; i++ {
		s.Set(fmt.Sprintf("k%d", i), i)
		clock.Advance(time.Minute)
	}

	if s.Len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", s.Len())
	}
	for _, k := range []string{"k0", "k1", "k2"} {
		if _, ok := s.Get(k); ok {
			t.Errorf("expected %s evicted", k)
		}
	}
	for _, k := range []string{"k3", "k4", "k5"} {
		if _, ok := s.Get(k); !ok {
			t.Errorf("expected %s retained", k)
		}
	}
}

func TestStore_NeverExceedsCapacity(t *testing.T) {
	s := New[int](model.CacheConfig{TTL: time.Hour, Capacity: 100, Retain: 80})

	for i := 0; i < 1000; i++ {
		s.Set(fmt.Sprintf("k%d", i), i)
		if s.Len() > 100 {
			t.Fatalf("cache grew to %d entries", s.Len())
		}
	}
}

func TestStore_SnapshotRestore(t *testing.T) {
	clock := newFakeClock()
	cfg := model.CacheConfig{TTL: time.Hour, Capacity: 10}

	src := New[string](cfg, WithClock(clock.Now))
	src.Set("old", "a")
	clock.Advance(30 * time.Minute)
	src.Set("new", "b")

	snap := src.Snapshot()
	if len(snap) != 2 || snap[0].Key != "old" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	clock.Advance(45 * time.Minute) // "old" is now past expiry
	dst := New[string](cfg, WithClock(clock.Now))
	if kept := dst.Restore(snap); kept != 1 {
		t.Errorf("expected 1 restored entry, got %d", kept)
	}
	if v, ok := dst.Get("new"); !ok || v != "b" {
		t.Errorf("expected restored entry, got %q %v", v, ok)
	}
}

func TestPersistent_LoadFlush(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	cfg := model.CacheConfig{TTL: time.Hour, Capacity: 10}

	p := NewPersistent(New[string](cfg), backend, storage.BucketFetchCache)
	p.Set("https://a.com", "content")
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	q := NewPersistent(New[string](cfg), backend, storage.BucketFetchCache)
	n, err := q.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry loaded, got %d", n)
	}
	if v, ok := q.Get("https://a.com"); !ok || v != "content" {
		t.Errorf("expected persisted value, got %q %v", v, ok)
	}

	if err := q.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if _, found, _ := backend.Get(ctx, storage.BucketFetchCache); found {
		t.Error("expected bucket removed")
	}
}

func TestPersistent_NilBackend(t *testing.T) {
	p := NewPersistent(New[int](model.CacheConfig{TTL: time.Hour}), nil, "x")
	if _, err := p.Load(context.Background()); err != nil {
		t.Errorf("Load with nil backend: %v", err)
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Errorf("Flush with nil backend: %v", err)
	}
}
