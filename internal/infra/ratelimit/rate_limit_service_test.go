package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (RateLimitService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRateLimitService(client, "test:ratelimit", logger), mr
}

func TestRateLimitService_IncrementWithinWindow(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := svc.Increment(ctx, "api:ip:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	attempts, err := svc.GetAttempts(ctx, "api:ip:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	allowed, err := svc.CheckLimit(ctx, "api:ip:10.0.0.1", 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	// the window is not extended by later attempts
	assert.Equal(t, time.Minute, mr.TTL("test:ratelimit:api:ip:10.0.0.1"))
}

func TestRateLimitService_WindowExpires(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	_, err := svc.Increment(ctx, "k", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	attempts, err := svc.GetAttempts(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, attempts)
}

func TestRateLimitService_Block(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	blocked, err := svc.IsBlocked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, svc.Block(ctx, "k", 15*time.Minute, "too many requests"))

	blocked, err = svc.IsBlocked(ctx, "k")
	require.NoError(t, err)
	assert.True(t, blocked)

	mr.FastForward(16 * time.Minute)

	blocked, err = svc.IsBlocked(ctx, "k")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRateLimitService_RedisDown(t *testing.T) {
	svc, mr := newTestService(t)
	mr.Close()

	_, err := svc.Increment(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}
