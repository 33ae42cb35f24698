package crawler

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// ExponentialRetryPolicy bounds attempts and spaces them with jittered
// exponential backoff.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	retryable   func(error) bool
}

// NewExponentialRetryPolicy builds a policy allowing maxAttempts attempts in
// total, waiting base*2^(n-1) plus up to base of jitter, capped at max.
func NewExponentialRetryPolicy(maxAttempts int, base, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   base,
		maxDelay:    maxDelay,
	}
}

// FetchRetryPolicy is the default network policy: 3 attempts, 1s..10s.
func FetchRetryPolicy() *ExponentialRetryPolicy {
	return NewExponentialRetryPolicy(3, time.Second, 10*time.Second)
}

// PersistRetryPolicy is the default detail-scrape policy: 3 attempts,
// 0.5s..2s, retrying only transient persistence failures.
func PersistRetryPolicy() *ExponentialRetryPolicy {
	return NewExponentialRetryPolicy(3, 500*time.Millisecond, 2*time.Second).
		WithRetryable(func(err error) bool { return errors.Is(err, ErrPersistenceUnavailable) })
}

// WithRetryable restricts retries to errors accepted by fn.
func (p *ExponentialRetryPolicy) WithRetryable(fn func(error) bool) *ExponentialRetryPolicy {
	clone := *p
	clone.retryable = fn
	return &clone
}

// MaxAttempts reports the total number of attempts allowed.
func (p *ExponentialRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether another attempt follows attempt (1-based).
func (p *ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.retryable != nil {
		return p.retryable(err)
	}
	return true
}

// Backoff returns the wait duration after the given attempt (1-based).
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	delay += float64(p.randomJitter(p.baseDelay))
	if p.maxDelay > 0 && delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	return time.Duration(delay)
}

func (p *ExponentialRetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Retry runs fn until it succeeds or the policy gives up, returning the last
// error. The attempt number passed to fn is 1-based.
func Retry(ctx context.Context, policy *ExponentialRetryPolicy, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return err
		}
		if perr := Pause(ctx, policy.Backoff(attempt)); perr != nil {
			return err
		}
	}
}
