// Package kvcache implements the browser-local-style persistent key-value
// cache used by the last-resort storage tier and the legacy client-list cache.
package kvcache

import (
	"context"
	"database/sql"
	"errors"

	"debtman/internal/core"
)

// SQLiteCache implements core.KVCache over the embedded SQLite database.
// It usually shares the connection with the handle store.
type SQLiteCache struct {
	db    *sql.DB
	clock core.Clock
}

// NewSQLiteCache wraps an existing connection opened via localdb.Open.
func NewSQLiteCache(db *sql.DB, clock core.Clock) *SQLiteCache {
	return &SQLiteCache{db: db, clock: clock}
}

func (c *SQLiteCache) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, c.clock.Now().UTC())
	if err != nil {
		return core.NewError(core.KindStorageUnavailable, "kvcache.put", err)
	}
	return nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, core.NewError(core.KindStorageUnavailable, "kvcache.get", err)
	}
	return value, nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return core.NewError(core.KindStorageUnavailable, "kvcache.delete", err)
	}
	return nil
}

// Close is a no-op: the connection is owned by the handle store.
func (c *SQLiteCache) Close() error { return nil }

// Compile-time check that SQLiteCache implements core.KVCache
var _ core.KVCache = (*SQLiteCache)(nil)
