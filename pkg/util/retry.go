package util

import (
	"context"
	"time"
)

// RetryPolicy parameterizes Retry. The delay before attempt n+1 is
// BaseDelay << n (1s, 2s, 4s with the defaults used by the dispatcher).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retriable   func(error) bool
}

// Retry runs op up to MaxAttempts times with exponential backoff between
// attempts. Errors the policy classifies as non-retriable are returned
// immediately. If the context is cancelled mid-backoff, the in-flight
// attempt's error is returned and no further attempts are scheduled.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retriable := policy.Retriable
	if retriable == nil {
		retriable = IsTransient
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			}
			delay *= 2
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retriable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
