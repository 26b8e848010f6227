package clients

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func bucketWithClock(rate float64, burst int) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	tb := NewTokenBucket(rate, burst)
	tb.now = clock.Now
	tb.last = clock.Now()
	return tb, clock
}

func TestTokenBucketAllow(t *testing.T) {
	tb, clock := bucketWithClock(10, 2)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock.Advance(100 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketRefillIsCapped(t *testing.T) {
	tb, clock := bucketWithClock(10, 2)
	clock.Advance(time.Hour)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketReservationsQueue(t *testing.T) {
	tb, _ := bucketWithClock(10, 1)

	assert.Equal(t, time.Duration(0), tb.reserve())
	assert.Equal(t, 100*time.Millisecond, tb.reserve())
	assert.Equal(t, 200*time.Millisecond, tb.reserve())
}

func TestTokenBucketMinimumBurst(t *testing.T) {
	tb, _ := bucketWithClock(10, 0)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitReportsDelay(t *testing.T) {
	tb := NewTokenBucket(200, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	delay, err := tb.Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, delay)

	start := time.Now()
	delay, err = tb.Wait(ctx)
	require.NoError(t, err)
	assert.Greater(t, delay, time.Duration(0))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTokenBucketCanceledWaitReturnsToken(t *testing.T) {
	tb, clock := bucketWithClock(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// the canceled reservation is given back, so one second earns exactly one token
	clock.Advance(time.Second)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}
