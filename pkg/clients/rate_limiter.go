package clients

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces requests out. It delays a request, it never retries one.
type RateLimiter interface {
	// Wait blocks until the request may go out or ctx is done, and reports how long it waited
	Wait(ctx context.Context) (time.Duration, error)
}

// TokenBucket refills at rate tokens per second up to burst. A request that
// finds the bucket empty reserves the next token by driving the balance
// negative, so concurrent waiters are released in the order they arrived.
type TokenBucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time

	now func() time.Time
}

// NewTokenBucket creates a full bucket. burst is raised to 1 when smaller.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		rate:  rate,
		burst: float64(burst),
		now:   time.Now,
	}
	tb.tokens = tb.burst
	tb.last = tb.now()
	return tb
}

// Allow takes a token only if one is available right now
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance()
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// Wait reserves a token and sleeps until it is due. A canceled wait hands the
// token back.
func (tb *TokenBucket) Wait(ctx context.Context) (time.Duration, error) {
	delay := tb.reserve()
	if delay <= 0 {
		return 0, nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return delay, nil
	case <-ctx.Done():
		tb.mu.Lock()
		tb.tokens++
		tb.mu.Unlock()
		return 0, ctx.Err()
	}
}

// reserve takes one token and returns how long until it exists
func (tb *TokenBucket) reserve() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance()
	tb.tokens--
	if tb.tokens >= 0 {
		return 0
	}
	return time.Duration(-tb.tokens / tb.rate * float64(time.Second))
}

// advance credits the tokens earned since the last call
func (tb *TokenBucket) advance() {
	now := tb.now()
	tb.tokens += now.Sub(tb.last).Seconds() * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
	tb.last = now
}
