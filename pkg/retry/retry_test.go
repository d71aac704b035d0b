package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

type flaggedError struct{ retryable bool }

func (e flaggedError) Error() string     { return "flagged" }
func (e flaggedError) IsRetryable() bool { return e.retryable }

func TestDoIfRetryableSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoIfRetryableStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("password authentication failed for user")
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoIfRetryableExhaustsRetries(t *testing.T) {
	transient := errors.New("i/o timeout")
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls) // initial attempt + MaxRetries
}

func TestDoIfRetryableHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, Multiplier: 2}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- DoIfRetryable(ctx, cfg, func() error {
			calls++
			return errors.New("connection reset by peer")
		})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")))
	assert.True(t, IsRetryable(errors.New("FATAL: the database system is starting up")))
	assert.True(t, IsRetryable(errors.New("Error 1040: Too many connections")))
	assert.False(t, IsRetryable(errors.New("pq: database \"missing\" does not exist")))

	// Explicit declarations win over pattern matching.
	assert.True(t, IsRetryable(flaggedError{retryable: true}))
	assert.False(t, IsRetryable(flaggedError{retryable: false}))
}
