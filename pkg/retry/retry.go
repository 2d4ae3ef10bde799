// Package retry executes functions with configurable backoff, jitter and
// attempt limits. The Config.NextDelay hook lets an externally generated
// retry plan (such as a reconnection schedule) drive the delays instead of
// the built-in exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"time"
)

// JitterStrategy selects the jitter algorithm applied to delays.
type JitterStrategy int

const (
	// JitterNone disables jitter.
	JitterNone JitterStrategy = iota
	// JitterEqual picks a uniform delay in (0, base].
	JitterEqual
	// JitterDecorrelated spreads delays around 1.5x base.
	JitterDecorrelated
)

// Config defines retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps backoff growth.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// Jitter selects the jitter strategy.
	Jitter JitterStrategy
	// OnRetry is called before each retry for observability.
	OnRetry func(attempt int, err error, nextDelay time.Duration)
	// NextDelay overrides backoff and jitter when set. Returning false stops
	// retrying.
	NextDelay func(attempt int, err error) (time.Duration, bool)
	// Rand is the jitter randomness source (defaults to a local source).
	Rand *rand.Rand
	// Now and After exist for testing and default to the real clock.
	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       JitterDecorrelated,
	}
}

// Normalize validates the configuration and fills in defaults.
func (c *Config) Normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.InitialDelay > c.MaxDelay {
		return errors.New("retry: InitialDelay cannot exceed MaxDelay")
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.After == nil {
		c.After = time.After
	}
	return nil
}

// Func is a function that can be retried.
type Func func(ctx context.Context) error

// RetryableFunc decides whether an error should trigger a retry.
type RetryableFunc func(err error) bool

// ExhaustedError is returned when all attempts fail.
type ExhaustedError struct {
	LastError     error
	Attempts      int
	TotalDuration time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts in %s: %v",
		e.Attempts, e.TotalDuration, e.LastError)
}

func (e *ExhaustedError) Unwrap() error { return e.LastError }

// DefaultRetryable treats timeouts and transient network errors as
// retryable. Context cancellation is never retried.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Do executes fn with retries, using DefaultRetryable to classify errors.
func Do(ctx context.Context, config Config, fn Func) error {
	return DoWithRetryable(ctx, config, fn, DefaultRetryable)
}

// DoWithRetryable executes fn with retries and a custom retryable check.
// Non-retryable errors are returned as-is; exhausting attempts returns an
// *ExhaustedError wrapping the last error.
func DoWithRetryable(ctx context.Context, config Config, fn Func, isRetryable RetryableFunc) error {
	cfg := config
	if err := cfg.Normalize(); err != nil {
		return err
	}

	start := cfg.Now()
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		var delay time.Duration
		if cfg.NextDelay != nil {
			var ok bool
			delay, ok = cfg.NextDelay(attempt, lastErr)
			if !ok {
				return lastErr
			}
		} else {
			delay = cfg.applyJitter(cfg.backoffDelay(attempt))
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cfg.After(delay):
		}
	}

	return &ExhaustedError{
		LastError:     lastErr,
		Attempts:      cfg.MaxAttempts,
		TotalDuration: cfg.Now().Sub(start),
	}
}

// backoffDelay computes the exponential delay before retry number attempt.
func (c Config) backoffDelay(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		if delay > time.Duration(float64(c.MaxDelay)/c.Multiplier) {
			return c.MaxDelay
		}
		delay = time.Duration(float64(delay) * c.Multiplier)
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

func (c Config) applyJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return base
	}
	switch c.Jitter {
	case JitterEqual:
		return clamp(time.Duration(c.Rand.Int63n(int64(base)))+1, 0, c.MaxDelay)
	case JitterDecorrelated:
		span := base
		return clamp(base/2+time.Duration(c.Rand.Int63n(int64(span))), 0, c.MaxDelay)
	default:
		return base
	}
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Retry executes fn with the default configuration.
func Retry(ctx context.Context, fn Func) error {
	return Do(ctx, DefaultConfig(), fn)
}

// WithAttempts executes fn with a custom attempt limit.
func WithAttempts(ctx context.Context, maxAttempts int, fn Func) error {
	cfg := DefaultConfig()
	cfg.MaxAttempts = maxAttempts
	return Do(ctx, cfg, fn)
}
