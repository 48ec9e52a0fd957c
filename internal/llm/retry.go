package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// RetryPolicy bounds how provider calls are retried. Rate-limited failures
// start from RateLimitDelay instead of BaseDelay; both double per attempt.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
	MaxDelay       time.Duration
	// AttemptTimeout bounds a single provider call. A call that overruns it
	// counts as a failed attempt. Zero leaves attempts bounded only by ctx.
	AttemptTimeout time.Duration
	// Sleep waits between attempts. Nil uses a timer that honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the production retry settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		RateLimitDelay: 2 * time.Second,
		MaxDelay:       8 * time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int, rateLimited bool) time.Duration {
	base := p.BaseDelay
	if rateLimited {
		base = p.RateLimitDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base << (attempt - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx ends.
// Each call gets its own AttemptTimeout deadline. The last error is wrapped
// in the returned error.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = p.attempt(ctx, fn); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if attempt == attempts {
			break
		}

		rateLimited := IsRateLimited(err)
		wait := p.Delay(attempt, rateLimited)
		log.Printf("WARN [LLMGateway] %s attempt %d/%d failed (rate_limited=%t), retrying in %s: %v", op, attempt, attempts, rateLimited, wait, err)
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return fmt.Errorf("%s: %w", op, sleepErr)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

// IsRateLimited reports whether err looks like a provider rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit", "too many requests", "resource_exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
