package tier

import (
	"context"
	"fmt"
	"path"
	"strings"

	"debtman/internal/core"
)

// CachePrefix keys tier-3 payloads in the local cache.
const CachePrefix = "backup_"

// CacheKey derives the cache entry key for a tier filename. The full relative
// path is kept, separators flattened, so payloads for different users under
// the shared cache never collapse onto one key.
func CacheKey(filename string) string {
	return CachePrefix + flatName(filename)
}

// flatName collapses a tier filename to a single path segment.
func flatName(filename string) string {
	return strings.ReplaceAll(path.Clean(filename), "/", "_")
}

// CacheTier is the last-resort tier: payloads under the size ceiling go into
// the local key-value cache so the dataset survives even when every stronger
// tier fails.
type CacheTier struct {
	cache    core.KVCache
	maxBytes int64
}

// NewCacheTier creates a cache tier with the given payload ceiling.
func NewCacheTier(cache core.KVCache, maxBytes int64) *CacheTier {
	return &CacheTier{cache: cache, maxBytes: maxBytes}
}

func (t *CacheTier) Name() string { return "cache" }

func (t *CacheTier) Available(ctx context.Context) bool {
	return t.cache != nil
}

func (t *CacheTier) Persist(ctx context.Context, filename string, data []byte) error {
	if t.cache == nil {
		return core.NewError(core.KindStorageUnavailable, "tier.cache",
			fmt.Errorf("no cache configured"))
	}
	if t.maxBytes > 0 && int64(len(data)) > t.maxBytes {
		return fmt.Errorf("payload too large for cache tier: %d bytes (limit %d)", len(data), t.maxBytes)
	}
	return t.cache.Put(ctx, CacheKey(filename), data)
}

// Compile-time check that CacheTier implements core.StorageTier
var _ core.StorageTier = (*CacheTier)(nil)
