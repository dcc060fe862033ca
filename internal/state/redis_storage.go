package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionScanBatch = 100

// RedisStorage persists session states in Redis as JSON documents.
type RedisStorage struct {
	client redis.UniversalClient
	log    *slog.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage. A zero ttl keeps sessions forever.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = "numbot"
	}

	return &RedisStorage{
		client: client,
		log:    log,
		prefix: prefix,
		ttl:    ttl,
	}
}

// GetState returns the stored state or ErrStateNotFound when absent.
func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStateNotFound
		}

		s.log.Error("failed to get session from redis", "user_id", userID, "error", err)
		return nil, fmt.Errorf("get session: %w", err)
	}

	var st UserState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Error("failed to decode session", "user_id", userID, "error", err)
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &st, nil
}

// SetState saves the provided state.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	stored := cloneState(st)
	stored.UserID = userID
	stored.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save session in redis", "user_id", userID, "error", err)
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// ClearState removes the stored state for the given session.
func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		s.log.Error("failed to clear session", "user_id", userID, "error", err)
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}

// GetAllStates retrieves every stored session by scanning keys.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		cursor uint64
		result []*UserState
	)

	pattern := s.prefix + ":session:*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, sessionScanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan sessions: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, fmt.Errorf("get session %s: %w", key, err)
			}

			var st UserState
			if err := json.Unmarshal(data, &st); err != nil {
				s.log.Warn("skipping undecodable session", "key", key, "error", err)
				continue
			}
			result = append(result, &st)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func (s *RedisStorage) key(userID int64) string {
	return fmt.Sprintf("%s:session:%d", strings.TrimSuffix(s.prefix, ":"), userID)
}
