package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantAfter fires timers immediately so tests never sleep.
func instantAfter(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func alwaysRetryable(error) bool { return true }

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.After = instantAfter

	calls := 0
	err := DoWithRetryable(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, alwaysRetryable)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.After = instantAfter
	cfg.MaxAttempts = 4

	boom := errors.New("boom")
	calls := 0
	err := DoWithRetryable(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return boom
	}, alwaysRetryable)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 4, ex.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
}

func TestDoNonRetryableReturnsImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.After = instantAfter

	boom := errors.New("fatal")
	calls := 0
	err := DoWithRetryable(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return boom
	}, func(error) bool { return false })

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, DefaultConfig(), func(ctx context.Context) error {
		t.Fatal("must cancel before the first attempt")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoNextDelayDrivesPlan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 10
	cfg.After = instantAfter

	plan := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	var delays []time.Duration
	cfg.NextDelay = func(attempt int, err error) (time.Duration, bool) {
		if attempt > len(plan) {
			return 0, false
		}
		return plan[attempt-1], true
	}
	cfg.OnRetry = func(attempt int, err error, d time.Duration) {
		delays = append(delays, d)
	}

	boom := errors.New("down")
	err := DoWithRetryable(context.Background(), cfg, func(ctx context.Context) error {
		return boom
	}, alwaysRetryable)

	// Plan exhausted after two retries → original error, not ExhaustedError.
	assert.Equal(t, boom, err)
	assert.Equal(t, plan, delays)
}

func TestConfigNormalize(t *testing.T) {
	t.Run("rejects non-positive attempts", func(t *testing.T) {
		cfg := Config{MaxAttempts: 0}
		assert.Error(t, cfg.Normalize())
	})

	t.Run("rejects multiplier below one", func(t *testing.T) {
		cfg := Config{MaxAttempts: 1, Multiplier: 0.5}
		assert.Error(t, cfg.Normalize())
	})

	t.Run("rejects initial delay above max", func(t *testing.T) {
		cfg := Config{MaxAttempts: 1, InitialDelay: time.Minute, MaxDelay: time.Second}
		assert.Error(t, cfg.Normalize())
	})

	t.Run("fills defaults", func(t *testing.T) {
		cfg := Config{MaxAttempts: 1}
		require.NoError(t, cfg.Normalize())
		assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
		assert.Equal(t, 30*time.Second, cfg.MaxDelay)
		assert.NotNil(t, cfg.Now)
		assert.NotNil(t, cfg.After)
	})
}

func TestBackoffDelay(t *testing.T) {
	cfg := Config{MaxAttempts: 10, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, 100*time.Millisecond, cfg.backoffDelay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.backoffDelay(2))
	assert.Equal(t, 400*time.Millisecond, cfg.backoffDelay(3))
	assert.Equal(t, 800*time.Millisecond, cfg.backoffDelay(4))
	assert.Equal(t, time.Second, cfg.backoffDelay(5))
	assert.Equal(t, time.Second, cfg.backoffDelay(9))
}

func TestApplyJitterBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jitter = JitterDecorrelated
	require.NoError(t, cfg.Normalize())

	base := time.Second
	for i := 0; i < 100; i++ {
		d := cfg.applyJitter(base)
		assert.GreaterOrEqual(t, d, base/2)
		assert.LessOrEqual(t, d, cfg.MaxDelay)
	}

	cfg.Jitter = JitterNone
	assert.Equal(t, base, cfg.applyJitter(base))
}

func TestDefaultRetryable(t *testing.T) {
	assert.False(t, DefaultRetryable(nil))
	assert.False(t, DefaultRetryable(context.Canceled))
	assert.True(t, DefaultRetryable(context.DeadlineExceeded))
	assert.True(t, DefaultRetryable(io.EOF))
	assert.False(t, DefaultRetryable(errors.New("some app error")))
}

func TestWithAttempts(t *testing.T) {
	calls := 0
	err := WithAttempts(context.Background(), 1, func(ctx context.Context) error {
		calls++
		return errors.New("once")
	})
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 1, calls)
}
