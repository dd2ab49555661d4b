package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedValue struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestCacheServiceRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCacheService(client, quietLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", cachedValue{Name: "lineup", Score: 301.5}, time.Minute))

	var got cachedValue
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, cachedValue{Name: "lineup", Score: 301.5}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k2", 1, 0))
	require.NoError(t, cache.Delete(ctx, "k2"))
	assert.ErrorIs(t, cache.Get(ctx, "k2", &got), ErrCacheMiss)
}

func TestCacheServiceMissesDoNotTripBreaker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCacheService(client, quietLogger())

	var got cachedValue
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cache.Get(context.Background(), "missing", &got), ErrCacheMiss)
	}
	assert.Equal(t, gobreaker.StateClosed, cache.State())
}

func TestCacheServiceBreakerOpensWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	cache := NewCacheService(client, quietLogger())
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Error(t, cache.Set(context.Background(), "k", 1, time.Minute))
	}
	assert.Equal(t, gobreaker.StateOpen, cache.State())

	err := cache.Set(context.Background(), "k", 1, time.Minute)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	var got cachedValue
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", cachedValue{Name: "a"}, time.Minute))
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, "a", got.Name)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cache.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "forever", 1, 0))
	now = now.Add(24 * time.Hour)
	var n int
	require.NoError(t, cache.Get(ctx, "forever", &n))
	require.NoError(t, cache.Delete(ctx, "forever"))
	assert.ErrorIs(t, cache.Get(ctx, "forever", &n), ErrCacheMiss)
}

func TestFingerprint(t *testing.T) {
	pool := testPool(t)

	a, err := Fingerprint(pool, 5, []string{"b", "a"}, nil)
	require.NoError(t, err)
	b, err := Fingerprint(pool, 5, []string{"a", "b"}, []string{})
	require.NoError(t, err)
	assert.Equal(t, a, b, "order of locks does not matter")

	c, err := Fingerprint(pool, 6, []string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	assert.Equal(t, "optimization:draftkings:abc", OptimizationCacheKey("DraftKings", "abc"))
	assert.Equal(t, "run:xyz", RunCacheKey("xyz"))
}
