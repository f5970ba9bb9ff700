package core

import (
	"context"
	"time"
)

// FolderConfig is the per-user record describing the connected data folder.
// It is created on the first successful grant and only ever invalidated,
// never deleted (except by an explicit user reset).
type FolderConfig struct {
	UserID       string
	FolderName   string
	LastAccessAt time.Time
	IsValid      bool
}

// HandleRecord is the persisted directory-access handle for a user.
type HandleRecord struct {
	UserID  string
	Ref     HandleRef
	SavedAt time.Time
}

// HandleStore persists directory-access handles and folder configuration in
// the embedded local store. Implementations must write the handle and its
// FolderConfig as a single transaction: a reader never observes one without
// the other.
type HandleStore interface {
	// Save upserts the handle and a valid FolderConfig for userID atomically.
	Save(ctx context.Context, userID string, ref HandleRef) error

	// Get returns the stored handle record, or nil when none exists.
	Get(ctx context.Context, userID string) (*HandleRecord, error)

	// Config returns the stored folder config, or nil when none exists.
	Config(ctx context.Context, userID string) (*FolderConfig, error)

	// Invalidate flips the folder config to invalid. The handle record is
	// kept for diagnostic inspection.
	Invalidate(ctx context.Context, userID string) error

	// Touch refreshes the folder config's last-access timestamp.
	Touch(ctx context.Context, userID string, at time.Time) error

	// Purge removes both the handle and the folder config. Only a
	// user-initiated reset calls this.
	Purge(ctx context.Context, userID string) error

	Close() error
}

// KVCache is the browser-local-style persistent key-value cache backing the
// last-resort storage tier and the legacy flat client-list cache.
type KVCache interface {
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the value for key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// StorageTier is one persistence strategy tried by the tier coordinator.
// Tiers are ordered data: adding or reordering them is a config change.
type StorageTier interface {
	// Name identifies the tier in logs.
	Name() string

	// Available reports whether the tier can currently accept writes.
	Available(ctx context.Context) bool

	// Persist writes data under filename.
	Persist(ctx context.Context, filename string, data []byte) error
}

// Capabilities describes what the host environment supports. Unknown always
// maps to false.
type Capabilities struct {
	DirectoryAccessSupported bool
	PermissionQuerySupported bool
	SecureContext            bool
}
