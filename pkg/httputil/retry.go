package httputil

import (
	"context"
	"errors"
	"time"

	fractalerrors "github.com/matzehuels/fractal/pkg/errors"
)

// MaxRetryAfter caps how long a server's Retry-After may hold up a retry.
const MaxRetryAfter = 30 * time.Second

// RetryableError marks a transient failure (a 5xx, a 429, a dropped
// connection) that [Retry] may attempt again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times. Only errors wrapped in
// [RetryableError] are retried. The delay doubles after every failure,
// unless the server asked for a longer pause via Retry-After.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(err, delay)):
		}
		delay *= 2
	}
	return err
}

// RetryWithBackoff is [Retry] with 3 attempts and a 1 second initial delay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

// IsRetryable reports whether err is wrapped in a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// retryDelay returns the pause before the next attempt: delay, or the
// server's Retry-After when that is longer, capped at MaxRetryAfter.
func retryDelay(err error, delay time.Duration) time.Duration {
	var rl *fractalerrors.RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter <= 0 {
		return delay
	}
	return max(delay, min(time.Duration(rl.RetryAfter)*time.Second, MaxRetryAfter))
}
