package inventory

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxTxAttempts = 32
	txRetryDelay  = 2 * time.Millisecond
)

// appendScript appends the numbers not yet queued for a pair and creates the
// country on first use. It returns the appended count, or -1 when the service is missing.
//
// KEYS: services, seq, countries, numbers, queued. ARGV: service, country, numbers...
var appendScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return -1
end
if not redis.call('ZSCORE', KEYS[3], ARGV[2]) then
	local seq = redis.call('INCR', KEYS[2])
	redis.call('ZADD', KEYS[3], 'NX', seq, ARGV[2])
end
local added = 0
for i = 3, #ARGV do
	if redis.call('SADD', KEYS[5], ARGV[i]) == 1 then
		redis.call('RPUSH', KEYS[4], ARGV[i])
		added = added + 1
	end
end
return added
`)

// takeFrontScript removes and returns up to ARGV[1] numbers from the front of the queue.
//
// KEYS: numbers, queued.
var takeFrontScript = redis.NewScript(`
local page = redis.call('LRANGE', KEYS[1], 0, tonumber(ARGV[1]) - 1)
if #page > 0 then
	redis.call('LTRIM', KEYS[1], #page, -1)
	redis.call('SREM', KEYS[2], unpack(page))
end
return page
`)

// ErrContention is returned when optimistic transactions keep colliding.
var ErrContention = errors.New("inventory: too much contention")

// scoreReader is satisfied by both the client and a watched transaction.
type scoreReader interface {
	ZScore(ctx context.Context, key, member string) *redis.FloatCmd
}

// RedisStore persists the inventory in Redis.
//
// Layout under prefix:
//
//	inv:services            ZSET service names scored by creation sequence
//	inv:seq                 creation sequence counter
//	inv:countries:<svc>     ZSET country names scored by creation sequence
//	inv:numbers:<svc>:<c>   LIST queued numbers, front = oldest
//	inv:queued:<svc>:<c>    SET  queued numbers for duplicate checks
//	inv:page_size           page size setting
//
// Names inside keys are hex encoded. Appends and takes run as Lua scripts, so
// they are atomic without retries. Deletes and country creation run in a
// WATCH/MULTI transaction that is retried when a watched key changes underneath it.
type RedisStore struct {
	client          redis.UniversalClient
	log             *slog.Logger
	prefix          string
	defaultPageSize int
}

// NewRedisStore wires a RedisStore. A non-positive defaultPageSize falls back to DefaultPageSize.
func NewRedisStore(client redis.UniversalClient, prefix string, defaultPageSize int, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = "numbot"
	}
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}

	return &RedisStore{
		client:          client,
		log:             log,
		prefix:          strings.TrimSuffix(prefix, ":"),
		defaultPageSize: defaultPageSize,
	}
}

func (s *RedisStore) CreateService(ctx context.Context, name string) error {
	if err := validateName("service", name); err != nil {
		return err
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	added, err := s.client.ZAddNX(ctx, s.servicesKey(), redis.Z{Score: float64(seq), Member: name}).Result()
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	if added == 0 {
		return alreadyExists("service", name)
	}

	return nil
}

func (s *RedisStore) DeleteService(ctx context.Context, name string) error {
	countriesKey := s.countriesKey(name)

	return s.transact(ctx, func(tx *redis.Tx) error {
		if ok, err := s.serviceExists(ctx, tx, name); err != nil {
			return err
		} else if !ok {
			return notFound("service", name)
		}

		countries, err := tx.ZRange(ctx, countriesKey, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("list countries: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, s.servicesKey(), name)
			pipe.Del(ctx, countriesKey)
			for _, country := range countries {
				pipe.Del(ctx, s.numbersKey(name, country), s.queuedKey(name, country))
			}
			return nil
		})
		return err
	}, s.servicesKey(), countriesKey)
}

func (s *RedisStore) CreateCountry(ctx context.Context, service, name string) error {
	if err := validateName("country", name); err != nil {
		return err
	}

	return s.transact(ctx, func(tx *redis.Tx) error {
		if ok, err := s.serviceExists(ctx, tx, service); err != nil {
			return err
		} else if !ok {
			return serviceNotFound(service)
		}

		seq, err := tx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		var added *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			added = pipe.ZAddNX(ctx, s.countriesKey(service), redis.Z{Score: float64(seq), Member: name})
			return nil
		})
		if err != nil {
			return err
		}
		if added.Val() == 0 {
			return alreadyExists("country", name)
		}
		return nil
	}, s.servicesKey())
}

func (s *RedisStore) DeleteCountry(ctx context.Context, service, name string) error {
	countriesKey := s.countriesKey(service)

	return s.transact(ctx, func(tx *redis.Tx) error {
		if ok, err := s.serviceExists(ctx, tx, service); err != nil {
			return err
		} else if !ok {
			return notFound("service", service)
		}

		if err := tx.ZScore(ctx, countriesKey, name).Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound("country", name)
			}
			return fmt.Errorf("lookup country: %w", err)
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, countriesKey, name)
			pipe.Del(ctx, s.numbersKey(service, name), s.queuedKey(service, name))
			return nil
		})
		return err
	}, s.servicesKey(), countriesKey)
}

func (s *RedisStore) AppendNumbers(ctx context.Context, service, country string, numbers []string) (int, error) {
	if err := validateName("country", country); err != nil {
		return 0, err
	}

	fresh := uniqueFresh(nil, numbers)
	args := make([]interface{}, 0, len(fresh)+2)
	args = append(args, service, country)
	args = append(args, toInterfaces(fresh)...)

	keys := []string{
		s.servicesKey(),
		s.seqKey(),
		s.countriesKey(service),
		s.numbersKey(service, country),
		s.queuedKey(service, country),
	}

	appended, err := appendScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("append numbers: %w", err)
	}
	if appended < 0 {
		return 0, serviceNotFound(service)
	}
	return appended, nil
}

// TakeFront pops the page in one script call, so concurrent takers never retry or collide.
func (s *RedisStore) TakeFront(ctx context.Context, service, country string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	keys := []string{s.numbersKey(service, country), s.queuedKey(service, country)}
	taken, err := takeFrontScript.Run(ctx, s.client, keys, n).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("take numbers: %w", err)
	}

	if taken == nil {
		taken = []string{}
	}
	return taken, nil
}

func (s *RedisStore) RemainingCount(ctx context.Context, service, country string) (int, error) {
	count, err := s.client.LLen(ctx, s.numbersKey(service, country)).Result()
	if err != nil {
		return 0, fmt.Errorf("count numbers: %w", err)
	}
	return int(count), nil
}

func (s *RedisStore) Services(ctx context.Context) ([]string, error) {
	services, err := s.client.ZRange(ctx, s.servicesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

func (s *RedisStore) Countries(ctx context.Context, service string) ([]string, error) {
	if ok, err := s.serviceExists(ctx, s.client, service); err != nil {
		return nil, err
	} else if !ok {
		return nil, serviceNotFound(service)
	}

	countries, err := s.client.ZRange(ctx, s.countriesKey(service), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

func (s *RedisStore) PageSize(ctx context.Context) (int, error) {
	raw, err := s.client.Get(ctx, s.pageSizeKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.defaultPageSize, nil
		}
		return 0, fmt.Errorf("get page size: %w", err)
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		s.log.Warn("ignoring malformed page size", "value", raw)
		return s.defaultPageSize, nil
	}
	return n, nil
}

func (s *RedisStore) SetPageSize(ctx context.Context, n int) error {
	if err := validatePageSize(n); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.pageSizeKey(), n, 0).Err(); err != nil {
		return fmt.Errorf("set page size: %w", err)
	}
	return nil
}

func (s *RedisStore) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}

		timer := time.NewTimer(time.Duration(attempt) * txRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.log.Warn("inventory transaction gave up", "keys", keys, "attempts", maxTxAttempts)
	return ErrContention
}

func (s *RedisStore) serviceExists(ctx context.Context, c scoreReader, name string) (bool, error) {
	err := c.ZScore(ctx, s.servicesKey(), name).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, fmt.Errorf("lookup service: %w", err)
}

func (s *RedisStore) servicesKey() string { return s.prefix + ":inv:services" }
func (s *RedisStore) seqKey() string      { return s.prefix + ":inv:seq" }
func (s *RedisStore) pageSizeKey() string { return s.prefix + ":inv:page_size" }

func (s *RedisStore) countriesKey(service string) string {
	return s.prefix + ":inv:countries:" + hex.EncodeToString([]byte(service))
}

func (s *RedisStore) numbersKey(service, country string) string {
	return s.prefix + ":inv:numbers:" + pairID(service, country)
}

func (s *RedisStore) queuedKey(service, country string) string {
	return s.prefix + ":inv:queued:" + pairID(service, country)
}

func pairID(service, country string) string {
	return hex.EncodeToString([]byte(service)) + ":" + hex.EncodeToString([]byte(country))
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
