package handlestore

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"debtman/internal/config"
	"debtman/internal/core"
	"debtman/internal/localdb"
)

// NewStoreFromConfig creates a HandleStore based on the store config type.
// For sqlite stores the returned *sql.DB is also handed back so the kv cache
// can share the same database file; it is owned by the store.
func NewStoreFromConfig(cfg config.StoreConfig, clock core.Clock) (core.HandleStore, *sql.DB, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, nil, fmt.Errorf("data_dir required for sqlite store")
		}
		db, err := localdb.Open(filepath.Join(cfg.DataDir, "debtman.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("opening store database: %w", err)
		}
		return NewSQLiteStore(db, clock, true), db, nil
	case "memory":
		return NewMemoryStore(clock), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
