// Package retry provides an injectable retry policy for upstream calls.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy decides how many times an operation is attempted and how long to wait in between.
// The zero value runs the operation exactly once.
type Policy struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
}

// Constant waits the same delay between attempts.
func Constant(maxAttempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(delay)
		},
	}
}

// Exponential doubles the delay after every failed attempt up to maxInterval.
func Exponential(maxAttempts int, initial, maxInterval time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = maxInterval
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Permanent marks err as not retryable. Do returns the wrapped error immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the attempts are exhausted
// or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.NewBackOff != nil {
		b = p.NewBackOff()
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(ctx)
	}, b, func(err error, wait time.Duration) {
		slog.Warn("operation failed, retrying",
			"operation", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)
	})
}
