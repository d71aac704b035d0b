package ner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerTripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		assert.Equal(t, CircuitClosed, cb.State())
	}
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	allowed, err := cb.Allow()
	assert.False(t, allowed)
	assert.Error(t, err)
}

func TestCircuitBreakerSingleSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Zero(t, cb.ConsecutiveFailures())

	allowed, err := cb.Allow()
	assert.True(t, allowed)
	assert.NoError(t, err)
}

func TestCircuitBreakerHalfOpenAfterReset(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	require.Equal(t, CircuitClosed, cb.State())
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	allowed, err := cb.Allow()
	assert.True(t, allowed, "the probe request passes after the reset timeout")
	assert.NoError(t, err)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// Concurrent requests are rejected while the probe is in flight.
	allowed, err = cb.Allow()
	assert.False(t, allowed)
	assert.Error(t, err)

	// A failed probe reopens the circuit.
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
}
