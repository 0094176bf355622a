package tosc

import (
	"context"
	"errors"
	"time"
)

// RetryOptions bounds a retry loop by attempt count, wall-clock deadline, or
// both. A zero MaxAttempts falls back to the Manager's
// Options.RetryDefaultMax, and is unbounded if that is also zero; a zero
// Deadline means no time bound. At least one bound should be set, or a permanently
// conflicting transaction retries forever.
type RetryOptions struct {
	MaxAttempts int
	Deadline    time.Duration
}

// Retry runs fn under mgr.Transact, re-running it whenever the transaction
// aborts with ErrConflict, until it succeeds, returns a different error, or
// a bound in opts is exceeded. It is hoisted out of Transact so callers can
// opt into bounded retrying without the engine imposing a policy of its own.
func Retry(ctx context.Context, mgr *Manager, opts RetryOptions, fn func(tx *Transaction) error) error {
	max := opts.MaxAttempts
	if max == 0 {
		max = mgr.opts.RetryDefaultMax
	}

	var deadline time.Time
	if opts.Deadline > 0 {
		deadline = timeNow().Add(opts.Deadline)
	}

	for attempt := 1; ; attempt++ {
		err := mgr.Transact(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if max > 0 && attempt >= max {
			return ErrRetryExhausted
		}
		if !deadline.IsZero() && timeNow().After(deadline) {
			return ErrRetryTimeout
		}
		mgr.opts.logf("tosc: retrying after conflict (attempt %d)", attempt)
	}
}

// timeNow is a seam over time.Now so tests can control the clock without
// reaching for a third-party fake-clock dependency.
var timeNow = time.Now
