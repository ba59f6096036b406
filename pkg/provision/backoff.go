package provision

import (
	"context"
	"time"
)

// retryPolicy bounds retries of transient store failures: a fixed attempt
// budget with exponential delays capped at max. Fatal kinds (auth,
// permission, not-found) never pass through it.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts: 3,
		base:     500 * time.Millisecond,
		max:      8 * time.Second,
	}
}

// delay returns the backoff before the given retry attempt (1-based).
func (r retryPolicy) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 16 {
		shift = 16
	}
	d := r.base * time.Duration(1<<uint(shift))
	if r.max > 0 && d > r.max {
		d = r.max
	}
	return d
}

// sleep waits out the backoff for attempt, honoring context cancellation.
func (r retryPolicy) sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
