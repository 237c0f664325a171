package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig tunes the exponential backoff retrier.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig matches common MCP client defaults: a handful of
// retries with jittered exponential backoff capped at a few seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Retrier runs an operation with exponential backoff and jitter.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier constructs a Retrier from cfg.
func NewRetrier(cfg RetryConfig) *Retrier {
	return &Retrier{cfg: cfg}
}

// Do runs op, retrying on error up to cfg.MaxRetries times with exponential
// backoff, unless ctx is cancelled or cfg.MaxElapsedTime is exceeded first.
// op is wrapped so that a context.Canceled or context.DeadlineExceeded
// result is treated as a permanent (non-retryable) failure.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = r.cfg.InitialInterval
	boff.MaxInterval = r.cfg.MaxInterval

	wrapped := func() (T, error) {
		result, err := op(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return result, backoff.Permanent(err)
			}
			return result, err
		}
		return result, nil
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(boff),
		backoff.WithMaxTries(uint(r.cfg.MaxRetries)+1),
		backoff.WithMaxElapsedTime(r.cfg.MaxElapsedTime),
	)
}
