// Package retry provides a generic exponential-backoff wrapper for
// transient external-service failures.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Options controls the retry schedule. Zero values fall back to the defaults.
type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = defaultInitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defaultMaxDelay
	}
	return o
}

// WithRetry executes fn, retrying on failure with exponential backoff
// (initialDelay x 2^attempt) plus random jitter in [0, initialDelay),
// capped at MaxDelay. After MaxRetries is exhausted the last error is
// returned. The delay is interruptible by ctx cancellation.
func WithRetry[T any](ctx context.Context, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxRetries {
			break
		}

		baseDelay := opts.InitialDelay << uint(attempt)
		jitter := time.Duration(rand.Int64N(int64(opts.InitialDelay)))
		delay := baseDelay + jitter
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
