package retrylimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string   { return http.StatusText(int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

func fastConfig(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestWithRetryConfig(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetryConfig(context.Background(), func() error {
			calls++
			if calls < 3 {
				return statusErr(http.StatusBadGateway)
			}
			return nil
		}, nil, fastConfig(5))
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("fatal stops immediately", func(t *testing.T) {
		calls := 0
		cause := errors.New("not found")
		err := WithRetryConfig(context.Background(), func() error {
			calls++
			return Fatal(cause)
		}, nil, fastConfig(5))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted attempts keep last error", func(t *testing.T) {
		cause := errors.New("flaky")
		calls := 0
		err := WithRetryConfig(context.Background(), func() error {
			calls++
			return cause
		}, nil, fastConfig(3))
		assert.ErrorIs(t, err, cause)
		assert.ErrorContains(t, err, "max attempts (3)")
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetryConfig(ctx, func() error { return nil }, nil, fastConfig(3))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("on retry callback", func(t *testing.T) {
		var seen []int
		cfg := fastConfig(3)
		cfg.OnRetry = func(attempt int, _ error) { seen = append(seen, attempt) }
		_ = WithRetryConfig(context.Background(), func() error { return errors.New("x") }, nil, cfg)
		assert.Equal(t, []int{1, 2, 3}, seen)
	})
}

func TestAdaptiveLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)
	assert.Equal(t, 4.0, lim.CurrentLimit())

	lim.RateLimited()
	assert.Equal(t, 2.0, lim.CurrentLimit())

	lim.RateLimited()
	lim.RateLimited()
	assert.Equal(t, 1.0, lim.CurrentLimit(), "never below min")

	// Success right after an error must not raise the rate.
	lim.Success()
	assert.Equal(t, 1.0, lim.CurrentLimit())

	err := WithRetryConfig(context.Background(), func() error {
		return statusErr(http.StatusTooManyRequests)
	}, lim, fastConfig(2))
	assert.Error(t, err)
	assert.Equal(t, 1.0, lim.CurrentLimit())
}

func TestClassifiers(t *testing.T) {
	wrapped := errors.Join(errors.New("other"), statusErr(http.StatusTooManyRequests))
	assert.True(t, IsRateLimit(wrapped))
	assert.True(t, IsServerError(statusErr(http.StatusServiceUnavailable)))
	assert.False(t, IsServerError(statusErr(http.StatusNotFound)))
	assert.False(t, DefaultClassifier(errors.New("plain")))
	assert.Nil(t, Fatal(nil))
}
