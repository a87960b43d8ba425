package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is one cached value with its absolute expiry
type Entry[T any] struct {
	Key       string    `json:"key"`
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now
func (e Entry[T]) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats reports cache usage
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Key generates a cache key from one or more parts
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "eoq:v1:" + hex.EncodeToString(hash[:])
}
