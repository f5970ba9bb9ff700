package kvcache

import (
	"context"
	"sync"

	"debtman/internal/core"
)

// MemoryCache is an in-memory implementation of core.KVCache for tests.
// Safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte

	// failWith, when non-nil, is returned by every call.
	failWith error
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// FailWith makes every subsequent call return err. Pass nil to clear.
func (c *MemoryCache) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

func (c *MemoryCache) Put(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = stored
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failWith != nil {
		return nil, c.failWith
	}

	value, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}

	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) Close() error { return nil }

// Compile-time check that MemoryCache implements core.KVCache
var _ core.KVCache = (*MemoryCache)(nil)
