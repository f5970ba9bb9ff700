package kvcache

import (
	"database/sql"
	"fmt"

	"debtman/internal/config"
	"debtman/internal/core"
)

// NewCacheFromConfig creates a KVCache based on the cache config type.
// db is the shared store connection; required for type=sqlite.
func NewCacheFromConfig(cfg config.CacheConfig, db *sql.DB, clock core.Clock) (core.KVCache, error) {
	switch cfg.Type {
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite cache requires the shared store connection")
		}
		return NewSQLiteCache(db, clock), nil
	case "memory":
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
