//go:build integration

package httpx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Redis 6 lacks EXPIRE NX, so this also pins the limiter to commands older
// servers understand.
func TestRedisRateLimiterAgainstRedis6(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.Run(ctx, "redis:6-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rl, err := NewRedisRateLimiter(addr, "", 0, discardLogger())
	require.NoError(t, err)
	t.Cleanup(rl.Close)

	for i := 1; i <= 3; i++ {
		decision := rl.Allow("POST /auth/signin|ip:198.51.100.7", 3, time.Minute)
		require.True(t, decision.allowed, "hit %d", i)
		assert.Equal(t, i, decision.count)
		assert.WithinDuration(t, time.Now().Add(time.Minute), decision.windowEnd, 5*time.Second)
	}
	assert.False(t, rl.Allow("POST /auth/signin|ip:198.51.100.7", 3, time.Minute).allowed)
	assert.True(t, rl.Allow("POST /auth/signin|ip:203.0.113.9", 3, time.Minute).allowed)

	short := rl.Allow("POST /auth/signup|ip:198.51.100.7", 1, time.Second)
	require.True(t, short.allowed)
	assert.False(t, rl.Allow("POST /auth/signup|ip:198.51.100.7", 1, time.Second).allowed)
	assert.Eventually(t, func() bool {
		return rl.Allow("POST /auth/signup|ip:198.51.100.7", 1, time.Second).allowed
	}, 5*time.Second, 200*time.Millisecond, "window key must expire")
}
