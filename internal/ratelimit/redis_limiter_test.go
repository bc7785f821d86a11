package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client, "btc", testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, UserKey(1, "wallet"), 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client, "btc", testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, UserKey(1, "wallet"), 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, result.Allowed)
	}
}

func TestRedisLimiter_NamespacesKeys(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	btc := NewRedisLimiter(client, "btc", testLogger())
	eth := NewRedisLimiter(client, "eth", testLogger())

	res, err := btc.Check(ctx, UserKey(7, ""), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = eth.Check(ctx, UserKey(7, ""), 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	assert.True(t, mr.Exists("btc:ratelimit:user:7"))
	assert.True(t, mr.Exists("eth:ratelimit:user:7"))
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client, "", testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	time.Sleep(1100 * time.Millisecond)

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestAdaptiveLimiter_FallsBackToMemory(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, "btc", testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	// The fallback halves the limit.
	res, err := limiter.Check(ctx, "k", 4, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, _ = limiter.Check(ctx, "k", 4, time.Minute)
	_, err = limiter.Check(ctx, "k", 4, time.Minute)
	assert.True(t, errors.Is(err, ErrLimitExceeded))
}

func TestAdaptiveLimiter_ReportsRejection(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, "btc", testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	res, err := limiter.Check(ctx, "k", 1, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, res.Allowed)
}

func TestMemoryLimiter_Window(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "k", 1, 50*time.Millisecond)
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "k", 1, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrLimitExceeded)

	time.Sleep(60 * time.Millisecond)
	res, err := limiter.Check(ctx, "k", 1, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, limiter.Len())
}

func TestCleaner_RemovesKeysWithoutTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.ZAdd(ctx, "btc:ratelimit:user:1", redis.Z{Score: 1, Member: "a"}).Err())
	require.NoError(t, client.ZAdd(ctx, "btc:ratelimit:user:2", redis.Z{Score: 1, Member: "a"}).Err())
	require.NoError(t, client.Expire(ctx, "btc:ratelimit:user:2", time.Minute).Err())
	require.NoError(t, client.Set(ctx, "btc:state:1", "x", 0).Err())

	cleaner := NewCleaner(client, "btc", testLogger(), time.Minute)
	assert.Equal(t, 1, cleaner.Cleanup(ctx))

	assert.False(t, mr.Exists("btc:ratelimit:user:1"))
	assert.True(t, mr.Exists("btc:ratelimit:user:2"))
	assert.True(t, mr.Exists("btc:state:1"))
}

func TestRules_ForRoute(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Enabled:   true,
		Whitelist: []int64{42},
		PerUser:   config.RateLimitRule{Limit: 3, Window: "2s"},
		Commands: map[string]config.RateLimitRule{
			"withdraw_confirm": {Limit: 1, Window: "10s"},
			"broken":           {Limit: 1, Window: "soon"},
		},
	})

	limit, window := rules.ForRoute("withdraw_confirm")
	assert.Equal(t, 1, limit)
	assert.Equal(t, 10*time.Second, window)

	limit, window = rules.ForRoute("broken")
	assert.Equal(t, 3, limit)
	assert.Equal(t, 2*time.Second, window)

	assert.True(t, rules.IsWhitelisted(42))
	assert.False(t, rules.IsWhitelisted(43))

	empty := NewRules(config.RateLimitConfig{})
	limit, window = empty.ForRoute("wallet")
	assert.Equal(t, 1, limit)
	assert.Equal(t, DefaultWindow, window)
	assert.False(t, empty.Enabled())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
