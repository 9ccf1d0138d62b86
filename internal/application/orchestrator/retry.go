package orchestrator

import (
	"context"
	"errors"
	"time"
)

// Retry defaults
const (
	DefaultMaxRetries  = 2
	DefaultBackoffBase = 700 * time.Millisecond
)

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait before the next one. Attempts are numbered from 1.
type RetryPolicy interface {
	ShouldRetry(action string, attempt int, err error) bool
	Backoff(attempt int) time.Duration
}

// RetryableSet reports whether an action's failures are transient.
type RetryableSet interface {
	IsRetryable(action string) bool
}

// LinearRetryPolicy retries retryable actions up to MaxRetries times with a
// delay of Base * attempt.
type LinearRetryPolicy struct {
	MaxRetries int
	Base       time.Duration

	registry RetryableSet
	extra    map[string]bool
}

// NewLinearRetryPolicy creates a policy that treats an action as retryable
// when the registry says so or when it is listed in extra.
func NewLinearRetryPolicy(maxRetries int, base time.Duration, registry RetryableSet, extra ...string) *LinearRetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}

	p := &LinearRetryPolicy{
		MaxRetries: maxRetries,
		Base:       base,
		registry:   registry,
		extra:      make(map[string]bool, len(extra)),
	}
	for _, name := range extra {
		p.extra[name] = true
	}
	return p
}

// MaxAttempts returns the total number of attempts allowed for a retryable action.
func (p *LinearRetryPolicy) MaxAttempts() int {
	return p.MaxRetries + 1
}

// ShouldRetry implements RetryPolicy.
func (p *LinearRetryPolicy) ShouldRetry(action string, attempt int, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if attempt > p.MaxRetries {
		return false
	}
	return p.isRetryable(action)
}

// Backoff implements RetryPolicy.
func (p *LinearRetryPolicy) Backoff(attempt int) time.Duration {
	return p.Base * time.Duration(attempt)
}

func (p *LinearRetryPolicy) isRetryable(action string) bool {
	if p.extra[action] {
		return true
	}
	return p.registry != nil && p.registry.IsRetryable(action)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
