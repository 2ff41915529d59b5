// Package retrier retries transient failures with exponential backoff and
// jitter. Only idempotent operations should be retried; transaction
// submission in particular must run exactly once.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes one backoff schedule. The zero value is not usable, start
// from Default.
type Policy struct {
	// Initial delay before the second attempt.
	Initial time.Duration
	// Max caps the delay between attempts.
	Max time.Duration
	// Multiplier grows the delay after each attempt.
	Multiplier float64
	// Attempts total tries including the first.
	Attempts int
	// Jitter randomizes each delay by +/- this fraction.
	Jitter float64
}

// Default is a schedule suited to flaky RPC endpoints: three tries within
// roughly a second.
func Default() Policy {
	return Policy{
		Initial:    200 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 2.0,
		Attempts:   3,
		Jitter:     0.1,
	}
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done. The
// last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.Initial

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			jitter := (rand.Float64()*2 - 1) * p.Jitter * float64(delay)
			sleep := time.Duration(float64(delay) + jitter)
			if sleep < 0 {
				sleep = 0
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}

			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.Max > 0 && delay > p.Max {
				delay = p.Max
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}

// DoWithData runs fn under the policy and returns its value.
func DoWithData[T any](p Policy, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
