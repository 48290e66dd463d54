package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterBurstAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)}
	rl := newRateLimiter("test", 2, 0.5, clock.now)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
	assert.Equal(t, 2*time.Second, rl.RetryAfter())

	clock.advance(time.Second)
	assert.False(t, rl.Allow())
	assert.Equal(t, time.Second, rl.RetryAfter())

	clock.advance(time.Second)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiterCapsAtCapacity(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)}
	rl := newRateLimiter("test", 3, 1, clock.now)

	clock.advance(time.Hour)
	stats := rl.GetStats()
	assert.Equal(t, "test", stats.Name)
	assert.Equal(t, 3.0, stats.Tokens)
	assert.Zero(t, rl.RetryAfter())
}

func TestRateLimiterWait(t *testing.T) {
	rl := NewRateLimiter("wait", 1, 50)
	require.NoError(t, rl.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter("cancel", 1, 0.001)
	require.True(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestNewPerMinuteLimiter(t *testing.T) {
	rl := NewPerMinuteLimiter("api", 30)
	stats := rl.GetStats()
	assert.Equal(t, 30, stats.Capacity)
	assert.InDelta(t, 0.5, stats.RefillRate, 1e-12)
}
