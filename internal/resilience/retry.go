// Package resilience retries calls to rate-limited upstream services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how often and how patiently a call is retried.
type Policy struct {
	// Attempts is the total number of tries, the first one included.
	// 1 disables retrying.
	Attempts int

	// Backoff is the wait before the first retry. Later waits grow by
	// Multiplier up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	Multiplier float64

	// Jitter randomizes each wait by ±Jitter of its length.
	Jitter float64

	// Retryable decides whether an error is worth another try.
	// Defaults to IsTransient.
	Retryable func(err error) bool

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits free public geocoders: one quick retry, and never a
// wait long enough to stall an interactive run.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   2,
		Backoff:    time.Second,
		MaxBackoff: 10 * time.Second,
		Multiplier: 2,
		Jitter:     0.25,
	}
}

// WithAttempts returns a copy of p that tries n times. Values below 1 are
// treated as 1.
func (p Policy) WithAttempts(n int) Policy {
	if n < 1 {
		n = 1
	}
	p.Attempts = n
	return p
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = time.Second
	}
	if p.MaxBackoff < p.Backoff {
		p.MaxBackoff = p.Backoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, ctx ends,
// or the attempts are used up. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for calls that produce a value. The zero value is returned
// with the error when every attempt fails.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Attempts {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(p.backoff(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

func (p Policy) backoff(retry int) time.Duration {
	d := float64(p.Backoff) * math.Pow(p.Multiplier, float64(retry))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// LogRetries returns an OnRetry hook that logs each retry at warn level.
func LogRetries(service string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying request",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
