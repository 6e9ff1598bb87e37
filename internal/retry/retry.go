// Package retry implements the stage-level retry discipline around remote
// calls: exponential backoff with jitter, bounded attempts, and error
// classification. The backoff shape (exponential, capped, plus additive
// jitter of up to 25%) is
// a reusable policy function rather than a job-retry-count column update.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Options configures a WithRetry call. Zero-valued MaxAttempts, BaseDelay
// and MaxDelay fall back to the DefaultOptions() values.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnRetry, when set, is invoked before each wait with the attempt
	// number just completed (1-indexed), the delay about to be slept, and
	// the error that triggered the retry.
	OnRetry func(attempt int, delay time.Duration, err error)

	// sleep is overridable in tests so backoff delays don't slow down the
	// suite; production callers never set it.
	sleep func(context.Context, time.Duration) error
}

// DefaultOptions matches spec: 5 attempts, 500ms base, 10s cap.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Delay returns the backoff duration for attempt n (1-indexed), including
// additive jitter of 0 to 25% of that attempt's capped exponential delay.
// Exposed so tests can
// assert on the documented [500, 1000, 2000, 4000, 8000]ms sequence
// independent of jitter.
func Delay(n int, opts Options) time.Duration {
	base := opts.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := opts.MaxDelay
	if max <= 0 {
		max = 10 * time.Second
	}
	d := base * time.Duration(1<<uint(n-1))
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// WithRetry runs fn up to opts.MaxAttempts times, sleeping a jittered
// exponential backoff between attempts and retrying only errors
// IsRetryableError classifies as transient. The last error is returned
// unwrapped on final failure.
func WithRetry[T any](ctx context.Context, opts Options, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts || !IsRetryableError(err) {
			return zero, err
		}
		delay := Delay(attempt, opts)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
