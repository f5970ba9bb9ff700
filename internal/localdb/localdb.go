// Package localdb opens and migrates the embedded SQLite database that backs
// the handle store and the local key-value cache.
package localdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"debtman/internal/localdb/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Open opens a SQLite database at path, configures it, and applies pending
// migrations. path can be ":memory:" for an in-memory database.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store schema: %w", err)
	}

	// MigrateUp alone cannot tell a database written by a newer binary apart
	// from one that is current. Refuse to serve from a schema we don't know.
	if err := migrations.CheckStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying store schema: %w", err)
	}

	return db, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs, without running migrations. Exported for tests that need a raw
// connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Wait for locks instead of failing immediately; the store is shared by
	// the handle store and the cache within one process.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}
