package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter with one sorted set of hit timestamps per key.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter. Keys live under "<prefix>:ratelimit:".
func NewRedisLimiter(client redis.UniversalClient, prefix string, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = "numbot"
	}

	return &RedisLimiter{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

// Check adds the hit, counts the window and takes the hit back out when it went over the limit.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, span time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := time.Now()
	if limit <= 0 {
		return rejected(now.Add(span))
	}

	redisKey := l.prefix + ":ratelimit:" + key
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-span).UnixMicro(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, span)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("rate limiter pipeline failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	resetAt := now.Add(span)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.UnixMicro(int64(oldest[0].Score)).Add(span)
	}

	count := int(countCmd.Val())
	if count > limit {
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			l.log.Warn("failed to drop rejected hit", slog.String("key", key), slog.Any("error", err))
		}
		return rejected(resetAt)
	}

	return &Result{Allowed: true, Remaining: limit - count, ResetAt: resetAt}, nil
}
