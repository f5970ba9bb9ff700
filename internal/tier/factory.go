package tier

import (
	"fmt"

	"debtman/internal/config"
	"debtman/internal/core"
)

// NewTiersFromConfig builds the ordered tier list from configuration.
func NewTiersFromConfig(cfgs []config.TierConfig, retry config.RetryConfig, provider HandleProvider, cache core.KVCache, maxCacheBytes int64, sleep SleepFunc) ([]core.StorageTier, error) {
	policy := PolicyFromConfig(retry.MaxAttempts, retry.DelaysMS)

	tiers := make([]core.StorageTier, 0, len(cfgs))
	for _, cfg := range cfgs {
		switch cfg.Type {
		case "handle":
			tiers = append(tiers, NewHandleTier(provider, policy, sleep))
		case "export":
			if cfg.ExportDir == "" {
				return nil, fmt.Errorf("export tier requires export_dir to be set")
			}
			tiers = append(tiers, NewExportTier(cfg.ExportDir))
		case "cache":
			tiers = append(tiers, NewCacheTier(cache, maxCacheBytes))
		default:
			return nil, fmt.Errorf("unknown tier type: %s", cfg.Type)
		}
	}
	return tiers, nil
}
