package testutil

import (
	"debtman/internal/core"
	"debtman/internal/handle"
	"debtman/internal/handlestore"
	"debtman/internal/kvcache"
)

// NewTestHandle creates a fresh in-memory resource handle.
func NewTestHandle() *handle.MemoryHandle {
	return handle.NewMemoryHandle("test-handle")
}

// NewTestHandleStore creates an in-memory handle store on a fixed clock.
func NewTestHandleStore(clock core.Clock) *handlestore.MemoryStore {
	return handlestore.NewMemoryStore(clock)
}

// NewTestCache creates an in-memory key-value cache.
func NewTestCache() *kvcache.MemoryCache {
	return kvcache.NewMemoryCache()
}

// FixedHandleProvider serves one handle, or nil to simulate a disconnected
// session.
type FixedHandleProvider struct {
	H core.ResourceHandle
}

func (p *FixedHandleProvider) Handle() core.ResourceHandle { return p.H }
