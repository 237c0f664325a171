package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsOnFailureRate(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{
		WindowSize:       10,
		FailureThreshold: 0.5,
		MinimumRequests:  4,
		OpenTimeout:      50 * time.Millisecond,
		SuccessThreshold: 1,
	})

	for i := 0; i < 4; i++ {
		require.True(t, cb.Allow())
		cb.RecordResult(false)
	}
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenRecoversOnSuccess(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(BreakerConfig{
		WindowSize:       10,
		FailureThreshold: 0.5,
		MinimumRequests:  2,
		OpenTimeout:      10 * time.Millisecond,
		SuccessThreshold: 1,
	})
	require.True(t, cb.Allow())
	cb.RecordResult(false)
	require.True(t, cb.Allow())
	cb.RecordResult(false)
	require.Equal(t, BreakerOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.True(t, cb.Allow())
	cb.RecordResult(true)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestHealthProbe_TripsAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	h := NewHealthProbe(3)
	assert.True(t, h.Healthy())
	h.RecordFailure()
	h.RecordFailure()
	assert.True(t, h.Healthy())
	h.RecordFailure()
	assert.False(t, h.Healthy())
	h.RecordSuccess()
	assert.True(t, h.Healthy())
}

func TestDeduplicator_SeenBeforeWithinTTL(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator(50*time.Millisecond, 100)
	assert.False(t, d.SeenBefore("req-1"))
	assert.True(t, d.SeenBefore("req-1"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, d.SeenBefore("req-1"))
}

func TestDeduplicator_EvictsOldestBeyondCapacity(t *testing.T) {
	t.Parallel()

	d := NewDeduplicator(time.Minute, 2)
	d.SeenBefore("a")
	d.SeenBefore("b")
	d.SeenBefore("c")

	assert.False(t, d.SeenBefore("a"))
}

func TestRetrier_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	r := NewRetrier(RetryConfig{
		MaxRetries:      5,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	})

	attempts := 0
	result, err := Do(context.Background(), r, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_GivesUpOnContextCancel(t *testing.T) {
	t.Parallel()

	r := NewRetrier(DefaultRetryConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, r, func(ctx context.Context) (string, error) {
		return "", errors.New("always fails")
	})
	assert.Error(t, err)
}
