package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const bucketSchema = `CREATE TABLE IF NOT EXISTS buckets (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps buckets as rows of a single table
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// every :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(bucketSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get reads one bucket row
func (s *SQLiteStore) Get(ctx context.Context, bucket string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM buckets WHERE name = ?`, bucket).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &CacheError{Bucket: bucket, Op: "get", Err: err}
	}
	return data, true, nil
}

// Set upserts one bucket row
func (s *SQLiteStore) Set(ctx context.Context, bucket string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO buckets (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		bucket, data, time.Now().Unix())
	if err != nil {
		return &CacheError{Bucket: bucket, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes one bucket row
func (s *SQLiteStore) Remove(ctx context.Context, bucket string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM buckets WHERE name = ?`, bucket); err != nil {
		return &CacheError{Bucket: bucket, Op: "remove", Err: err}
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
