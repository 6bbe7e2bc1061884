package service

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy describes how many attempts a remote call gets and how long to
// wait between them.
type RetryPolicy struct {
	attempts int
	base     time.Duration
	cap      time.Duration
	jitter   time.Duration
}

// NewRetryPolicy creates a RetryPolicy with exponential backoff starting at
// base. Attempts below one are raised to one.
func NewRetryPolicy(attempts int, base time.Duration) RetryPolicy {
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{attempts: attempts, base: base}
}

// WithCap returns a copy whose delays never exceed d.
func (p RetryPolicy) WithCap(d time.Duration) RetryPolicy {
	p.cap = d
	return p
}

// WithJitter returns a copy that perturbs each delay by up to d.
func (p RetryPolicy) WithJitter(d time.Duration) RetryPolicy {
	p.jitter = d
	return p
}

// Attempts returns the total number of attempts.
func (p RetryPolicy) Attempts() int { return p.attempts }

// Base returns the first backoff delay.
func (p RetryPolicy) Base() time.Duration { return p.base }

// Cap returns the delay ceiling, zero meaning none.
func (p RetryPolicy) Cap() time.Duration { return p.cap }

// Jitter returns the jitter bound.
func (p RetryPolicy) Jitter() time.Duration { return p.jitter }

// DefaultQueryRetry is used for single-text embeddings: 4 attempts doubling
// from 400ms.
func DefaultQueryRetry() RetryPolicy {
	return NewRetryPolicy(4, 400*time.Millisecond)
}

// DefaultBatchRetry is used for whole-batch embeddings: 8 attempts doubling
// from 500ms, capped at 20s with 250ms jitter.
func DefaultBatchRetry() RetryPolicy {
	return NewRetryPolicy(8, 500*time.Millisecond).
		WithCap(20 * time.Second).
		WithJitter(250 * time.Millisecond)
}

// backoff builds a fresh go-retry schedule. Backoffs are stateful so each
// retried call needs its own.
func (p RetryPolicy) backoff() retry.Backoff {
	base := p.base
	if base <= 0 {
		base = time.Nanosecond
	}
	b := retry.NewExponential(base)
	if p.jitter > 0 {
		b = retry.WithJitter(p.jitter, b)
	}
	if p.cap > 0 {
		b = retry.WithCappedDuration(p.cap, b)
	}
	return retry.WithMaxRetries(uint64(p.attempts-1), b)
}
