package engine

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy is the bounded-retry abstraction shared by the pending-order
// reconciler and the exit controller: max attempts, fixed backoff, terminal
// fallback left to the caller.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// Do runs fn until it succeeds, the attempts run out, or the context dies.
// fn receives the 1-based attempt number so callers can degrade behaviour
// on later attempts (price step-down, FAK on the last try).
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt < attempts && p.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}
	}
	return fmt.Errorf("retry: %d attempts exhausted: %w", attempts, lastErr)
}
