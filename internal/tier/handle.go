package tier

import (
	"context"
	"path"

	"debtman/internal/core"
)

// HandleProvider yields the session's live directory handle, or nil when the
// session is not connected. The reconnection manager implements this.
type HandleProvider interface {
	Handle() core.ResourceHandle
}

// HandleTier is the primary tier: it writes through the live directory
// handle, wrapped in a bounded retry that skips non-retryable failures.
type HandleTier struct {
	provider HandleProvider
	policy   Policy
	sleep    SleepFunc
}

// NewHandleTier creates the primary tier.
func NewHandleTier(provider HandleProvider, policy Policy, sleep SleepFunc) *HandleTier {
	if sleep == nil {
		sleep = RealSleep
	}
	return &HandleTier{provider: provider, policy: policy, sleep: sleep}
}

func (t *HandleTier) Name() string { return "handle" }

func (t *HandleTier) Available(ctx context.Context) bool {
	return t.provider.Handle() != nil
}

func (t *HandleTier) Persist(ctx context.Context, filename string, data []byte) error {
	h := t.provider.Handle()
	if h == nil {
		return core.NewError(core.KindCapabilityUnavailable, "tier.handle",
			errNoLiveHandle)
	}

	return Do(ctx, t.policy, t.sleep, func() error {
		if dir := path.Dir(filename); dir != "." {
			if err := h.EnsureDir(ctx, dir); err != nil {
				return err
			}
		}
		return h.WriteFile(ctx, filename, data)
	})
}

// Compile-time check that HandleTier implements core.StorageTier
var _ core.StorageTier = (*HandleTier)(nil)
