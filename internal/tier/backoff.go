// Package tier implements the ordered persistence tiers and the coordinator
// that falls through them.
package tier

import (
	"context"
	"time"

	"debtman/internal/core"
)

// SleepFunc suspends for d or until ctx is done. Tests substitute a recorder.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RealSleep waits on a timer.
func RealSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds a retry loop. Delays are indexed by attempt number; attempts
// past the end reuse the last delay.
type Policy struct {
	MaxAttempts int
	Delays      []time.Duration
}

// PolicyFromConfig builds a Policy from millisecond config values.
func PolicyFromConfig(maxAttempts int, delaysMS []int64) Policy {
	delays := make([]time.Duration, len(delaysMS))
	for i, ms := range delaysMS {
		delays[i] = time.Duration(ms) * time.Millisecond
	}
	return Policy{MaxAttempts: maxAttempts, Delays: delays}
}

func (p Policy) delay(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	if attempt >= len(p.Delays) {
		return p.Delays[len(p.Delays)-1]
	}
	return p.Delays[attempt]
}

// Do runs fn under the retry policy. User cancellation is never retried;
// permission denials are retried exactly once; other retryable failures get
// MaxAttempts tries with the backoff schedule.
func Do(ctx context.Context, p Policy, sleep SleepFunc, fn func() error) error {
	permissionRetried := false

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		switch core.KindOf(err) {
		case core.KindUserCancelled:
			return err
		case core.KindPermissionDenied:
			if permissionRetried {
				return err
			}
			permissionRetried = true
		default:
			if !core.Retryable(err) {
				return err
			}
			if attempt+1 >= p.MaxAttempts {
				return err
			}
		}

		if err := sleep(ctx, p.delay(attempt)); err != nil {
			return err
		}
	}
}
