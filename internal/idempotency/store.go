package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers claimed keys for a limited time.
type Store interface {
	// Claim marks key as seen and reports whether this call was the first to do so.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisStore claims keys with SETNX so that every replica sees the same claims.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

// NewRedisStore builds a Redis-backed Store.
func NewRedisStore(client redis.UniversalClient, prefix string, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = "numbot"
	}

	return &RedisStore{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		log:    log,
	}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, s.recordKey(key), 1, ttl).Result()
	if err != nil {
		s.log.Error("failed to claim idempotency key", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return acquired, nil
}

func (s *RedisStore) recordKey(key string) string {
	return fmt.Sprintf("%s:idempotency:%s", s.prefix, key)
}

// MemoryStore keeps claims in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}

	s.expires[key] = now.Add(ttl)
	return true, nil
}

// Cleanup drops expired claims and returns how many were removed.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, key)
			removed++
		}
	}

	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Len reports the number of live claims.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}
