package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandleRef is the persisted form of a directory-access handle. Callers treat
// the encoded form as opaque; only the handle package interprets it.
type HandleRef struct {
	Type string `json:"type"`
	Root string `json:"root"`
}

// Encode serializes the ref for storage.
func (r HandleRef) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding handle ref: %w", err)
	}
	return data, nil
}

// DecodeHandleRef parses a persisted handle blob.
func DecodeHandleRef(data []byte) (HandleRef, error) {
	var r HandleRef
	if err := json.Unmarshal(data, &r); err != nil {
		return HandleRef{}, fmt.Errorf("decoding handle ref: %w", err)
	}
	return r, nil
}

// ResourceHandle is an abstract grant over a user-chosen directory. The
// filesystem implementation backs normal operation; an in-memory one backs
// tests and capability-less hosts. All paths are relative to the grant root
// and use forward slashes.
type ResourceHandle interface {
	// Probe verifies the grant is still live and writable: it must enumerate
	// at least one entry (or confirm an empty but readable root) and complete
	// a scratch write. Failures carry KindStaleHandle or KindPermissionDenied.
	Probe(ctx context.Context) error

	// ReadFile returns the contents of name.
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// WriteFile atomically replaces name with data, creating it if absent.
	WriteFile(ctx context.Context, name string, data []byte) error

	// List returns the entry names directly under dir.
	List(ctx context.Context, dir string) ([]string, error)

	// Remove deletes name. Removing a missing file is not an error.
	Remove(ctx context.Context, name string) error

	// RemoveAll deletes dir and everything under it.
	RemoveAll(ctx context.Context, dir string) error

	// EnsureDir creates dir if absent, including parents.
	EnsureDir(ctx context.Context, dir string) error

	// Ref returns the persistable reference for this handle.
	Ref() HandleRef
}
