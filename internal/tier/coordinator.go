package tier

import (
	"context"

	"debtman/internal/core"
)

// Coordinator tries each configured tier in order until one accepts the
// payload. The tier list is data: adding or reordering tiers is a config
// change, not a code change.
type Coordinator struct {
	tiers  []core.StorageTier
	logger core.Logger
}

// NewCoordinator creates a coordinator over the ordered tier list.
func NewCoordinator(tiers []core.StorageTier, logger core.Logger) *Coordinator {
	return &Coordinator{tiers: tiers, logger: logger}
}

// Persist writes data under filename through the first tier that accepts it.
// Every tier failure falls through to the next; the call reports false only
// when all tiers fail. Data is never silently dropped.
func (c *Coordinator) Persist(ctx context.Context, filename string, data []byte) bool {
	for _, t := range c.tiers {
		if !t.Available(ctx) {
			c.logger.Debug("tier unavailable", "tier", t.Name(), "file", filename)
			continue
		}

		err := t.Persist(ctx, filename, data)
		if err == nil {
			c.logger.Debug("persisted", "tier", t.Name(), "file", filename)
			return true
		}

		if core.KindOf(err) == core.KindUserCancelled {
			// Cancellation is not an error to report, but weaker tiers still
			// run so the data is not lost.
			c.logger.Debug("tier cancelled by user", "tier", t.Name(), "file", filename)
		} else {
			c.logger.Warn("tier failed", "tier", t.Name(), "file", filename, "error", err)
		}
	}

	c.logger.Error("all tiers failed", "file", filename)
	return false
}
