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

	"github.com/Proton-105/number-bot/pkg/config"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestMemoryLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(testLogger())
	limiter.now = clock.Now
	return limiter, clock
}

func TestMemoryLimiter_BlocksWhenExceeded(t *testing.T) {
	limiter, _ := newTestMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 1-i, result.Remaining)
	}

	result, err := limiter.Check(ctx, "user:1", 2, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)

	other, err := limiter.Check(ctx, "user:2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	limiter, clock := newTestMemoryLimiter()
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:1", 2, time.Minute)
	require.NoError(t, err)
	clock.now = clock.now.Add(30 * time.Second)
	_, err = limiter.Check(ctx, "user:1", 2, time.Minute)
	require.NoError(t, err)

	_, err = limiter.Check(ctx, "user:1", 2, time.Minute)
	require.ErrorIs(t, err, ErrLimitExceeded)

	clock.now = clock.now.Add(31 * time.Second)
	result, err := limiter.Check(ctx, "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestMemoryLimiter()
	ctx := context.Background()

	_, _ = limiter.Check(ctx, "user:1", 5, time.Minute)
	clock.now = clock.now.Add(10 * time.Minute)
	_, _ = limiter.Check(ctx, "user:2", 5, time.Minute)

	assert.Equal(t, 1, limiter.Cleanup(5*time.Minute))
	assert.Equal(t, 1, limiter.Len())
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client, "test", testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "user:1", 2, time.Minute)
		if i < 2 {
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		} else {
			assert.ErrorIs(t, err, ErrLimitExceeded)
			assert.False(t, result.Allowed)
		}
	}

	count, err := client.ZCard(ctx, "test:ratelimit:user:1").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "rejected hits are not counted")
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client, "test", testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(ctx, "user:1", 2, 200*time.Millisecond)
		require.NoError(t, err)
	}

	time.Sleep(250 * time.Millisecond)

	result, err := limiter.Check(ctx, "user:1", 2, 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("connection refused")
}

func TestAdaptiveLimiter_FallsBackOnBackendError(t *testing.T) {
	fallback, _ := newTestMemoryLimiter()
	limiter := NewAdaptiveLimiter(failingLimiter{}, fallback, testLogger())
	ctx := context.Background()

	result, err := limiter.Check(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	_, err = limiter.Check(ctx, "user:1", 1, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestAdaptiveLimiter_PrimaryRejectionIsFinal(t *testing.T) {
	primary, _ := newTestMemoryLimiter()
	fallback, _ := newTestMemoryLimiter()
	limiter := NewAdaptiveLimiter(primary, fallback, testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "user:1", 1, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Zero(t, fallback.Len())
}

func TestRules(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Enabled:   true,
		Limit:     20,
		Window:    time.Minute,
		Whitelist: []int64{7},
	}, 99)

	assert.True(t, rules.Enabled())
	assert.True(t, rules.IsWhitelisted(7))
	assert.True(t, rules.IsWhitelisted(99))
	assert.False(t, rules.IsWhitelisted(1))

	limit, window, err := rules.GetPerUserLimit()
	require.NoError(t, err)
	assert.Equal(t, 20, limit)
	assert.Equal(t, time.Minute, window)

	_, _, err = NewRules(config.RateLimitConfig{Limit: 5}).GetPerUserLimit()
	assert.Error(t, err)
}
