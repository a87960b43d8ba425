package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one JSON file per bucket in a directory
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file store rooted at dir. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// DefaultDir returns ~/.eoq/state
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".eoq", "state"), nil
}

// Get reads a bucket file
func (s *FileStore) Get(ctx context.Context, bucket string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(bucket))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &CacheError{Bucket: bucket, Op: "get", Err: err}
	}
	return data, true, nil
}

// Set writes a bucket file atomically via a temp file and rename
func (s *FileStore) Set(ctx context.Context, bucket string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &CacheError{Bucket: bucket, Op: "set", Err: fmt.Errorf("create state dir: %w", err)}
	}

	tmp, err := os.CreateTemp(s.dir, bucket+".*.tmp")
	if err != nil {
		return &CacheError{Bucket: bucket, Op: "set", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &CacheError{Bucket: bucket, Op: "set", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &CacheError{Bucket: bucket, Op: "set", Err: err}
	}

	if err := os.Rename(tmpName, s.path(bucket)); err != nil {
		_ = os.Remove(tmpName)
		return &CacheError{Bucket: bucket, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes a bucket file
func (s *FileStore) Remove(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(bucket))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &CacheError{Bucket: bucket, Op: "remove", Err: err}
	}
	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(bucket string) string {
	return filepath.Join(s.dir, bucket+".json")
}
