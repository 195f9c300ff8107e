package kvcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Schema creates the kv_cache table. Applied idempotently.
const Schema = `
CREATE TABLE IF NOT EXISTS kv_cache (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_kv_cache_expiry ON kv_cache(expires_at);
`

// SQLite is a Cache backed by a kv_cache table. Suitable when rate-limit
// windows must be visible to more than one process on the host.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps db as a Cache. The caller applies Schema (e.g. via
// dbopen.WithSchema) before first use.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kvcache: get %q: %w", key, err)
	}
	if expiresAt.Valid && time.Now().UnixMilli() > expiresAt.Int64 {
		s.db.ExecContext(ctx, `DELETE FROM kv_cache WHERE key = ?`, key)
		return nil, false, nil
	}
	return value, true, nil
}

// Put implements Cache.
func (s *SQLite) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("kvcache: put %q: %w", key, err)
	}
	return nil
}

// Delete implements Cache.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kvcache: delete %q: %w", key, err)
	}
	return nil
}

// Sweep deletes expired rows. Intended to run periodically from the owner.
func (s *SQLite) Sweep(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_cache WHERE expires_at IS NOT NULL AND expires_at < ?`,
		time.Now().UnixMilli())
	return err
}
