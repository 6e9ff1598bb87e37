package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelaySequenceWithoutJitter(t *testing.T) {
	opts := DefaultOptions()
	// Jitter is additive and random; assert the floor of each delay matches
	// the documented base sequence and the ceiling stays within 25%.
	want := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
	}
	for i, base := range want {
		d := Delay(i+1, opts)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/4)
	}
}

func TestDelayClampsToMax(t *testing.T) {
	opts := DefaultOptions()
	d := Delay(20, opts)
	assert.LessOrEqual(t, d, opts.MaxDelay+opts.MaxDelay/4)
}

func TestWithRetrySucceedsAfterRetryableFailures(t *testing.T) {
	opts := DefaultOptions()
	opts.sleep = func(context.Context, time.Duration) error { return nil }

	attempts := 0
	result, err := WithRetry(context.Background(), opts, func(ctx context.Context, attempt int) (string, error) {
		attempts++
		if attempt < 2 {
			return "", &HTTPError{StatusCode: 429, Message: "rate limited"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	opts := DefaultOptions()
	opts.sleep = func(context.Context, time.Duration) error { return nil }

	attempts := 0
	_, err := WithRetry(context.Background(), opts, func(ctx context.Context, attempt int) (string, error) {
		attempts++
		return "", &HTTPError{StatusCode: 400, Message: "bad request"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAttempts = 3
	opts.sleep = func(context.Context, time.Duration) error { return nil }

	attempts := 0
	_, err := WithRetry(context.Background(), opts, func(ctx context.Context, attempt int) (string, error) {
		attempts++
		return "", &HTTPError{StatusCode: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &HTTPError{StatusCode: 429}, true},
		{"500", &HTTPError{StatusCode: 500}, true},
		{"400", &HTTPError{StatusCode: 400}, false},
		{"econnreset", errors.New("read: ECONNRESET"), true},
		{"etimedout", errors.New("dial tcp: ETIMEDOUT"), true},
		{"socket hang up", errors.New("socket hang up"), true},
		{"network", errors.New("network unreachable"), true},
		{"other", errors.New("validation failed"), false},
		{"json body", errors.New(`request failed: {"statusCode":503,"message":"upstream down"}`), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, IsRetryableError(c.err))
		})
	}
}

func TestParseHTTPErrorUnwrapsJSONInString(t *testing.T) {
	err := errors.New(`POST failed: {"statusCode":429,"message":"rate limited"}`)
	parsed, ok := ParseHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 429, parsed.StatusCode)
	assert.Equal(t, "rate limited", parsed.Message)
}
