package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, clock *fakeClock) (*miniredis.Miniredis, *redisLimiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisLimiterWithClient(client, clock.now).(*redisLimiter)
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	_, limiter := newTestRedisLimiter(t, clock)
	ctx := context.Background()
	key := "ratelimit:verify_secret:1.2.3.4"

	for i := 0; i < 10; i++ {
		d, err := limiter.Allow(ctx, key, 10, time.Minute)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		clock.advance(time.Second)
	}
	d, err := limiter.Allow(ctx, key, 10, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC), d.ResetAt.UTC())

	clock.advance(51 * time.Second)
	d, err = limiter.Allow(ctx, key, 10, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestRedisLimiter_RejectionsDoNotConsume(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	mr, limiter := newTestRedisLimiter(t, clock)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		require.False(t, d.Allowed)
	}
	members, err := mr.ZMembers("k")
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	mr, limiter := newTestRedisLimiter(t, clock)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "k", 2, time.Minute)
	require.Error(t, err)
}

func TestNewRedisLimiter_RequiresAddr(t *testing.T) {
	_, err := NewRedisLimiter("", "", 0, nil)
	require.Error(t, err)
}
