// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of the [Store] interface.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore creates a new [SQLiteStore] and connects to the database.
// The cleanup goroutine exits when ctx is canceled.
func NewSQLiteStore(ctx context.Context, dsn string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			last_accessed INTEGER NOT NULL
		);
	`); err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:  db,
		ttl: ttl,
	}
	s.performCleanup(ctx)
	go s.cleanup(ctx)

	return s, nil
}

func (s *SQLiteStore) cleanup(ctx context.Context) {
	sleepDuration := min(s.ttl/2, 24*time.Hour)

	for {
		select {
		case <-time.After(sleepDuration):
			s.performCleanup(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SQLiteStore) performCleanup(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl).Unix()
	s.db.ExecContext(ctx, "DELETE FROM kv WHERE last_accessed < ?", cutoff)
}

// Get retrieves a value for a given key. Keys not touched for longer than
// the TTL are treated as missing even before the periodic cleanup removes
// them.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	cutoff := time.Now().Add(-s.ttl).Unix()
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE key = ? AND last_accessed >= ?",
		key, cutoff,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE kv SET last_accessed = ? WHERE key = ?",
		time.Now().Unix(), key,
	); err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a value for a given key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, last_accessed) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, last_accessed = excluded.last_accessed;
	`, key, value, time.Now().Unix())
	return err
}

// Delete removes a key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
