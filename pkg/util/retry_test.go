package util

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryFirstAttemptSucceeds(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryRecoversOnSecondAttempt(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	transient := errors.New("connection reset")
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		return transient
	})

	require.ErrorIs(t, err, transient)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetriable(t *testing.T) {
	permanent := NewValidationError("bad input", nil)
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryDelayDoubles(t *testing.T) {
	transient := errors.New("timeout")
	var stamps []time.Time
	base := 20 * time.Millisecond

	_ = Retry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: base}, func(context.Context) error {
		stamps = append(stamps, time.Now())
		return transient
	})

	require.Len(t, stamps, 3)
	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, first, base)
	assert.GreaterOrEqual(t, second, 2*base)
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	transient := errors.New("connection reset")
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Retry(ctx, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute}, func(context.Context) error {
		attempts++
		cancel()
		return transient
	})

	require.ErrorIs(t, err, transient)
	assert.Equal(t, 1, attempts)
}

func TestRetryDefaultsToSingleAttempt(t *testing.T) {
	transient := errors.New("boom")
	attempts := 0
	err := Retry(context.Background(), RetryPolicy{}, func(context.Context) error {
		attempts++
		return transient
	})

	require.ErrorIs(t, err, transient)
	assert.Equal(t, 1, attempts)
}
