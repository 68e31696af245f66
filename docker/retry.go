package docker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how a discovery operation is retried: up to
// MaxAttempts tries, waiting a fixed Interval between each. This is
// deliberately a fixed, not exponential, interval.
type RetryPolicy struct {
	MaxAttempts uint
	Interval    time.Duration
}

// DefaultRetryPolicy mirrors the original implementation's defaults: three
// attempts, five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Interval: 5 * time.Second}
}

// WithRetry runs op, retrying up to policy.MaxAttempts times at a fixed
// policy.Interval whenever op's error is retryable per shouldRetry. It
// returns the last error if every attempt fails or the error stops being
// retryable.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, shouldRetry func(error) bool, op func(context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx,
		func() (T, error) {
			result, err := op(ctx)
			if err != nil && !shouldRetry(err) {
				return result, backoff.Permanent(err)
			}
			return result, err
		},
		backoff.WithBackOff(&backoff.ConstantBackOff{Interval: policy.Interval}),
		backoff.WithMaxTries(policy.MaxAttempts),
	)
}
