// Package handlestore persists directory-access handles and folder
// configuration in the embedded local store.
package handlestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"debtman/internal/core"
)

// SQLiteStore implements core.HandleStore over the embedded SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	clock core.Clock

	// ownsDB marks whether Close should close the underlying connection.
	// The connection may be shared with the kv cache.
	ownsDB bool
}

// NewSQLiteStore wraps an existing connection opened via localdb.Open.
// When owns is true, Close closes the connection.
func NewSQLiteStore(db *sql.DB, clock core.Clock, owns bool) *SQLiteStore {
	return &SQLiteStore{db: db, clock: clock, ownsDB: owns}
}

// Save upserts the handle and a valid FolderConfig for userID as a single
// transaction. A reader never observes one row without the other.
func (s *SQLiteStore) Save(ctx context.Context, userID string, ref core.HandleRef) error {
	blob, err := ref.Encode()
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("handlestore.save", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO folder_configs (user_id, folder_name, last_access_at, is_valid)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			folder_name = excluded.folder_name,
			last_access_at = excluded.last_access_at,
			is_valid = 1`,
		userID, ref.Root, now)
	if err != nil {
		return storeErr("handlestore.save", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO directory_handles (user_id, handle, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			handle = excluded.handle,
			saved_at = excluded.saved_at`,
		userID, blob, now)
	if err != nil {
		return storeErr("handlestore.save", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("handlestore.save", err)
	}
	return nil
}

// Get returns the stored handle record, or nil when none exists.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*core.HandleRecord, error) {
	var blob []byte
	var savedAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT handle, saved_at FROM directory_handles WHERE user_id = ?`,
		userID).Scan(&blob, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("handlestore.get", err)
	}

	ref, err := core.DecodeHandleRef(blob)
	if err != nil {
		return nil, fmt.Errorf("reading handle for %s: %w", userID, err)
	}

	return &core.HandleRecord{UserID: userID, Ref: ref, SavedAt: savedAt}, nil
}

// Config returns the stored folder config, or nil when none exists.
func (s *SQLiteStore) Config(ctx context.Context, userID string) (*core.FolderConfig, error) {
	var cfg core.FolderConfig
	var isValid int

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, folder_name, last_access_at, is_valid FROM folder_configs WHERE user_id = ?`,
		userID).Scan(&cfg.UserID, &cfg.FolderName, &cfg.LastAccessAt, &isValid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("handlestore.config", err)
	}

	cfg.IsValid = isValid != 0
	return &cfg, nil
}

// Invalidate flips the folder config to invalid, keeping the handle row for
// diagnostic inspection.
func (s *SQLiteStore) Invalidate(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE folder_configs SET is_valid = 0 WHERE user_id = ?`, userID)
	if err != nil {
		return storeErr("handlestore.invalidate", err)
	}
	return nil
}

// Touch refreshes the folder config's last-access timestamp.
func (s *SQLiteStore) Touch(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE folder_configs SET last_access_at = ? WHERE user_id = ?`, at.UTC(), userID)
	if err != nil {
		return storeErr("handlestore.touch", err)
	}
	return nil
}

// Purge removes both the handle and the folder config for userID.
func (s *SQLiteStore) Purge(ctx context.Context, userID string) error {
	// The handle row cascades off folder_configs.
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM folder_configs WHERE user_id = ?`, userID)
	if err != nil {
		return storeErr("handlestore.purge", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// storeErr marks the embedded store as unavailable so callers can treat the
// failure as "no persisted handle".
func storeErr(op string, err error) error {
	return core.NewError(core.KindStorageUnavailable, op, err)
}

// Compile-time check that SQLiteStore implements core.HandleStore
var _ core.HandleStore = (*SQLiteStore)(nil)
