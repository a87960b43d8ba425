package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// Store is a capped, expiring in-memory cache of T values.
// Expiry is checked against the injected clock on every read, so an entry
// is never returned past its ExpiresAt.
type Store[T any] struct {
	items    *gocache.Cache
	ttl      time.Duration
	capacity int
	retain   int
	now      func() time.Time

	mu     sync.Mutex // serializes Set and eviction
	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Store
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a store with the given TTL and capacity limits
func New[T any](cfg model.CacheConfig, opts ...Option) *Store[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	retain := cfg.Retain
	if retain <= 0 || (cfg.Capacity > 0 && retain > cfg.Capacity) {
		retain = cfg.Capacity
	}

	return &Store[T]{
		items:    gocache.New(gocache.NoExpiration, 10*time.Minute),
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		retain:   retain,
		now:      o.now,
	}
}

// Get returns a live value, deleting the entry if it has expired
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T

	val, found := s.items.Get(key)
	if !found {
		s.misses.Add(1)
		return zero, false
	}

	entry := val.(Entry[T])
	if entry.Expired(s.now()) {
		s.items.Delete(key)
		s.misses.Add(1)
		return zero, false
	}

	s.hits.Add(1)
	return entry.Value, true
}

// Set stores a value with the default TTL and evicts when over capacity
func (s *Store[T]) Set(key string, value T) {
	s.SetEntry(Entry[T]{Key: key, Value: value, ExpiresAt: s.now().Add(s.ttl)})
}

// SetEntry stores an entry with an explicit expiry
func (s *Store[T]) SetEntry(entry Entry[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Set(entry.Key, entry, gocache.NoExpiration)
	if s.capacity > 0 && s.items.ItemCount() > s.capacity {
		s.evictLocked()
	}
}

// evictLocked drops entries soonest to expire until only retain remain
func (s *Store[T]) evictLocked() {
	entries := s.entries()
	if len(entries) <= s.retain {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExpiresAt.Before(entries[j].ExpiresAt)
	})

	for _, e := range entries[:len(entries)-s.retain] {
		s.items.Delete(e.Key)
	}
}

// Delete removes one entry
func (s *Store[T]) Delete(key string) {
	s.items.Delete(key)
}

// Clear removes every entry
func (s *Store[T]) Clear() {
	s.items.Flush()
}

// Len returns the number of stored entries, including expired ones not yet purged
func (s *Store[T]) Len() int {
	return s.items.ItemCount()
}

// PurgeExpired removes expired entries and returns how many were dropped
func (s *Store[T]) PurgeExpired() int {
	now := s.now()
	purged := 0
	for _, e := range s.entries() {
		if e.Expired(now) {
			s.items.Delete(e.Key)
			purged++
		}
	}
	return purged
}

// Snapshot returns the live entries, soonest expiry first
func (s *Store[T]) Snapshot() []Entry[T] {
	now := s.now()
	var live []Entry[T]
	for _, e := range s.entries() {
		if !e.Expired(now) {
			live = append(live, e)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].ExpiresAt.Before(live[j].ExpiresAt)
	})
	return live
}

// Restore loads entries, skipping expired ones, and returns how many were kept
func (s *Store[T]) Restore(entries []Entry[T]) int {
	now := s.now()
	kept := 0
	for _, e := range entries {
		if e.Key == "" || e.Expired(now) {
			continue
		}
		s.SetEntry(e)
		kept++
	}
	return kept
}

// Stats returns usage counters
func (s *Store[T]) Stats() Stats {
	return Stats{
		Entries: s.items.ItemCount(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
}

func (s *Store[T]) entries() []Entry[T] {
	items := s.items.Items()
	out := make([]Entry[T], 0, len(items))
	for _, item := range items {
		if e, ok := item.Object.(Entry[T]); ok {
			out = append(out, e)
		}
	}
	return out
}
