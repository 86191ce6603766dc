package downstream

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedDelay_FirstStepIsImmediate(t *testing.T) {
	p := FixedDelay{Delay: time.Hour}

	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), 0))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFixedDelay_WaitsBetweenSteps(t *testing.T) {
	p := FixedDelay{Delay: 30 * time.Millisecond}

	start := time.Now()
	require.NoError(t, p.Wait(context.Background(), 1))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFixedDelay_HonoursCancellation(t *testing.T) {
	p := FixedDelay{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Wait(ctx, 2), context.Canceled)
}

func TestTokenBucket_BacksOffOnExhaustedQuota(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewTokenBucket(100, 1)
	p.now = func() time.Time { return now }

	p.ObserveRate(RateStatus{Limit: 5000, Available: 10})
	assert.True(t, p.BlockedUntil().IsZero())

	p.ObserveRate(RateStatus{Limit: 5000, Available: 0, Reset: now.Add(3 * time.Second)})
	assert.Equal(t, now.Add(3*time.Second), p.BlockedUntil())

	// an earlier reset never shortens the pause
	p.ObserveRate(RateStatus{Throttled: true, RetryAfter: time.Second})
	assert.Equal(t, now.Add(3*time.Second), p.BlockedUntil())
}

func TestTokenBucket_CapsBackoff(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewTokenBucket(100, 1)
	p.now = func() time.Time { return now }

	p.ObserveRate(RateStatus{Throttled: true, Reset: now.Add(24 * time.Hour)})
	assert.Equal(t, now.Add(maxBackoff), p.BlockedUntil())
}

func TestTokenBucket_WaitBlocksWhileThrottled(t *testing.T) {
	p := NewTokenBucket(1000, 1)
	p.ObserveRate(RateStatus{Throttled: true, RetryAfter: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Wait(ctx, 0), context.DeadlineExceeded)
}

func TestParseRateStatus(t *testing.T) {
	h := http.Header{}
	h.Set("Rate-Limit", "5000")
	h.Set("Rate-Limit-Available", "4999")
	h.Set("Rate-Limit-Reset", "1746100800000")

	s, ok := parseRateStatus(h, http.StatusOK)
	require.True(t, ok)
	assert.Equal(t, 5000, s.Limit)
	assert.Equal(t, 4999, s.Available)
	assert.Equal(t, int64(1746100800000), s.Reset.UnixMilli())
	assert.False(t, s.Throttled)

	_, ok = parseRateStatus(http.Header{}, http.StatusOK)
	assert.False(t, ok)

	s, ok = parseRateStatus(http.Header{"Retry-After": {"2"}}, http.StatusTooManyRequests)
	require.True(t, ok)
	assert.True(t, s.Throttled)
	assert.Equal(t, 2*time.Second, s.RetryAfter)
	assert.Equal(t, -1, s.Available)
}
