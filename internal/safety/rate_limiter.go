package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	capacity   float64       // Maximum number of tokens
	tokens     float64       // Current number of tokens
	refillRate float64       // Tokens added per second
	lastRefill time.Time     // Last time tokens were added
	mutex      sync.Mutex    // Protects token count
	name       string        // Name for logging/identification
	now        func() time.Time
}

// NewRateLimiter creates a rate limiter that starts full
func NewRateLimiter(name string, capacity int, refillRate float64) *RateLimiter {
	return newRateLimiter(name, capacity, refillRate, time.Now)
}

// NewPerMinuteLimiter allows perMinute operations a minute with bursts up to perMinute
func NewPerMinuteLimiter(name string, perMinute int) *RateLimiter {
	return NewRateLimiter(name, perMinute, float64(perMinute)/60)
}

func newRateLimiter(name string, capacity int, refillRate float64, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		name:       name,
		now:        now,
	}
}

// Allow checks if an operation is allowed under the rate limit
func (rl *RateLimiter) Allow() bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillTokens()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until an operation is allowed or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}

		timer := time.NewTimer(rl.RetryAfter())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryAfter returns how long until the next token is available
func (rl *RateLimiter) RetryAfter() time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillTokens()
	if rl.tokens >= 1 || rl.refillRate <= 0 {
		return 0
	}
	return time.Duration((1 - rl.tokens) / rl.refillRate * float64(time.Second))
}

// refillTokens adds tokens based on elapsed time
func (rl *RateLimiter) refillTokens() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now
}

// GetStats returns current statistics about the rate limiter
func (rl *RateLimiter) GetStats() RateLimiterStats {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refillTokens()
	return RateLimiterStats{
		Name:       rl.name,
		Capacity:   int(rl.capacity),
		Tokens:     rl.tokens,
		RefillRate: rl.refillRate,
		LastRefill: rl.lastRefill,
	}
}

// RateLimiterStats holds statistics about a rate limiter
type RateLimiterStats struct {
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Tokens     float64   `json:"tokens"`
	RefillRate float64   `json:"refill_rate"`
	LastRefill time.Time `json:"last_refill"`
}
