package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
)

// Bucket names used by the pipeline components
const (
	BucketFetchCache         = "fetchCache"
	BucketEOQCache           = "eoqCache"
	BucketEnhancementCache   = "enhancementCache"
	BucketFailedDomains      = "failedDomains"
	BucketDomainReputation   = "domainReputation"
	BucketDomainInteractions = "domainInteractions"
)

// Store persists named buckets of opaque serialized data
type Store interface {
	// Get returns the bucket contents; found is false when the bucket was never written
	Get(ctx context.Context, bucket string) (data []byte, found bool, err error)

	// Set replaces the bucket contents
	Set(ctx context.Context, bucket string, data []byte) error

	// Remove deletes the bucket; removing a missing bucket is not an error
	Remove(ctx context.Context, bucket string) error

	Close() error
}

// CacheError reports a persistence failure for one bucket
type CacheError struct {
	Bucket string
	Op     string // get, set, remove, decode, encode
	Err    error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// LoadJSON decodes a bucket into v. It returns false without error when the
// bucket does not exist.
func LoadJSON(ctx context.Context, s Store, bucket string, v any) (bool, error) {
	data, found, err := s.Get(ctx, bucket)
	if err != nil {
		return false, err
	}
	if !found || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &CacheError{Bucket: bucket, Op: "decode", Err: err}
	}
	return true, nil
}

// SaveJSON encodes v and writes it to a bucket
func SaveJSON(ctx context.Context, s Store, bucket string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &CacheError{Bucket: bucket, Op: "encode", Err: err}
	}
	return s.Set(ctx, bucket, data)
}

// Open creates the backend selected by cfg
func Open(cfg model.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "file", "":
		dir := cfg.Path
		if dir == "" {
			var err error
			dir, err = DefaultDir()
			if err != nil {
				return nil, err
			}
		}
		return NewFileStore(dir), nil

	case "sqlite":
		path := cfg.Path
		if path == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			path = dir + "/eoq.db"
		}
		return OpenSQLite(path)

	case "memory":
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, sqlite, memory)", cfg.Backend)
	}
}
