package gateway

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy is the single extension point for re-attempting transient
// gateway fetches. MaxAttempts of 1 (the default) disables retries.
// Symbol-resolution misses are never retried: a contract that is not
// listed will not appear on the next attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs fn up to MaxAttempts times with exponential backoff between
// attempts, honoring context cancellation while waiting.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, ErrSymbolNotFound) {
			return err
		}
		if i == attempts-1 {
			break
		}
		delay := p.BaseDelay * (1 << i)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
