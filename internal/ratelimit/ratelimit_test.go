package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"beanhealth/internal/config"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestMemoryLimiterBurstAndRefill(t *testing.T) {
	l := NewMemoryLimiter(rate.Every(time.Second), 2)
	defer l.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i+1)
	}

	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "10.0.0.2")
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "one token refilled after a second")
}

func TestMemoryLimiterEvictsStaleBuckets(t *testing.T) {
	l := NewMemoryLimiter(rate.Every(time.Second), 1)
	defer l.Close()

	_, _ = l.Allow(context.Background(), "10.0.0.1")
	l.evict(time.Now().Add(time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.limiters)
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 3, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, time.Minute, mr.TTL("beanhealth:ratelimit:10.0.0.1"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestRedisLimiterRepairsMissingExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 3, time.Minute, nil)

	// A counter left without a TTL must not block the key forever.
	require.NoError(t, mr.Set("beanhealth:ratelimit:10.0.0.1", "7"))

	ok, err := l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("beanhealth:ratelimit:10.0.0.1"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiterPerMinuteFromConfig(t *testing.T) {
	l, err := New(config.RateLimitConfig{PerMinute: 6, Burst: 1}, nil)
	require.NoError(t, err)
	ml := l.(*MemoryLimiter)
	defer ml.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ml.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := ml.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = ml.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	now = now.Add(10 * time.Second)
	ok, _ = ml.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "six per minute refills one token every ten seconds")
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l := NewRedisLimiter(client, 1, time.Minute, nil)
	mr.Close()

	ok, err := l.Allow(context.Background(), "10.0.0.1")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	l, err := New(config.RateLimitConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Unlimited{}, l)

	l, err = New(config.RateLimitConfig{PerMinute: 10, Burst: 5}, nil)
	require.NoError(t, err)
	require.IsType(t, &MemoryLimiter{}, l)
	l.(*MemoryLimiter).Close()

	mr, _ := setupTestRedis(t)
	l, err = New(config.RateLimitConfig{PerMinute: 10, RedisURL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)

	_, err = New(config.RateLimitConfig{PerMinute: 10, RedisURL: "::not a url"}, nil)
	assert.Error(t, err)
}
