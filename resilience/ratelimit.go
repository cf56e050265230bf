package resilience

import (
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter creates a limiter refilling rate tokens per second up to
// burst. burst <= 0 defaults to max(1, rate).
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return newRateLimiter(rate, burst, time.Now)
}

func newRateLimiter(rate float64, burst int, now func() time.Time) *RateLimiter {
	b := float64(burst)
	if b <= 0 {
		b = max(1, rate)
	}
	return &RateLimiter{
		rate:        rate,
		burst:       b,
		now:         now,
		tokens:      b,
		lastRefresh: now(),
	}
}

// Allow takes one token, returning ErrRateLimitExceeded when none is left.
func (rl *RateLimiter) Allow() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens < 1 {
		return ErrRateLimitExceeded
	}
	rl.tokens--
	return nil
}

// RetryAfter returns how long until one token is available.
func (rl *RateLimiter) RetryAfter() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	if rl.tokens >= 1 || rl.rate <= 0 {
		return 0
	}
	return time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
}

func (rl *RateLimiter) refillLocked() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefresh)
	rl.lastRefresh = now

	rl.tokens = min(rl.burst, rl.tokens+elapsed.Seconds()*rl.rate)
}
