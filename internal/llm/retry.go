package llm

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is an immutable retry configuration: bounded exponential
// backoff with full jitter, gated by a retryability predicate. Callers pass
// the policy by value; the same policy drives both waterfall legs.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, first call included.
	MaxAttempts int
	// BaseBackoff is the delay before the first retry; it doubles each
	// attempt up to MaxBackoff.
	BaseBackoff time.Duration
	// MaxBackoff caps the computed delay. Zero means no cap.
	MaxBackoff time.Duration
	// Retryable decides whether an error is worth another attempt. Nil means
	// IsTransient.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the policy used for provider calls when the
// configuration does not override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It returns
// the first permanent error, the last transient error once attempts are
// exhausted, or ctx.Err() if the context ends during a backoff sleep.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}

// delay computes the sleep before the given attempt (1-based for retries)
// with full jitter.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseBackoff
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			d = p.MaxBackoff
			break
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return time.Duration(rand.Int63n(int64(d)) + 1)
}
