package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRouteLimiter(rps float64, burst int) (*RouteLimiter, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRouteLimiter(rps, burst)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRouteLimiter_Burst(t *testing.T) {
	t.Parallel()

	rl, now := newTestRouteLimiter(10, 20)
	defer rl.Stop()

	for i := 0; i < 20; i++ {
		assert.True(t, rl.Allow("1.1.1.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "other clients have their own bucket")

	*now = now.Add(100 * time.Millisecond)
	assert.True(t, rl.Allow("1.1.1.1"), "one token refilled")
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRouteLimiter_DefaultBurst(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, NewRouteLimiter(5, 0).burst)
	assert.Equal(t, 1, NewRouteLimiter(0.5, 0).burst)
	assert.Equal(t, int64(5), NewRouteLimiter(5, 0).Limit())
}

func TestRouteLimiter_CleanupOldClients(t *testing.T) {
	t.Parallel()

	rl, now := newTestRouteLimiter(1, 1)
	defer rl.Stop()

	rl.Allow("a")
	*now = now.Add(2 * time.Minute)
	rl.Allow("b")

	rl.CleanupOldClients(time.Minute)
	assert.Equal(t, 1, rl.Clients())
}

func TestRouteLimiter_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	rl := NewRouteLimiter(1, 1, WithClientTTL(time.Second))
	rl.StartAutoCleanup()
	rl.Stop()
	rl.Stop()
	rl.StartAutoCleanup()
}
