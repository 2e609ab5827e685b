package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/scalpbot/internal/application/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_SucceedsOnLaterAttempt(t *testing.T) {
	p := engine.RetryPolicy{Attempts: 3}

	var attempts []int
	err := p.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestRetryPolicy_ExhaustsAndWrapsLastError(t *testing.T) {
	p := engine.RetryPolicy{Attempts: 2}
	sentinel := errors.New("venue rejected")

	err := p.Do(context.Background(), func(int) error { return sentinel })

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetryPolicy_ContextCancelStops(t *testing.T) {
	p := engine.RetryPolicy{Attempts: 10, Backoff: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(int) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ZeroAttemptsRunsOnce(t *testing.T) {
	p := engine.RetryPolicy{}

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
