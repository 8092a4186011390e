package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// counterTTL keeps counters around well past the end of their billing period
// so the snapshotter and late dashboard reads still see them.
const counterTTL = 90 * 24 * time.Hour

// RedisStore keeps per-period usage counters in Redis so every instance sees
// the same numbers. Keys follow usage:{teamID}:{feature}:{period}.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed usage store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "usage"}
}

func (s *RedisStore) key(teamID int64, feature, period string) string {
	return fmt.Sprintf("%s:%d:%s:%s", s.prefix, teamID, feature, period)
}

// CurrentUsage reads the counter for one team/feature/period. A missing key
// means zero usage.
func (s *RedisStore) CurrentUsage(ctx context.Context, teamID int64, feature, period string) (int64, error) {
	val, err := s.client.Get(ctx, s.key(teamID, feature, period)).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// AddUsage atomically increments the counter, refreshing its TTL so active
// counters never expire mid-period.
func (s *RedisStore) AddUsage(ctx context.Context, teamID int64, feature, period string, amount int64) error {
	key := s.key(teamID, feature, period)

	pipe := s.client.Pipeline()
	pipe.IncrBy(ctx, key, amount)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis incrby failed: %w", err)
	}
	return nil
}

// Counter is one usage counter as stored in Redis
type Counter struct {
	TeamID  int64
	Feature string
	Period  string
	Value   int64
}

// Scan walks all usage counters currently in Redis. Used by the snapshotter
// to persist counters to durable storage.
func (s *RedisStore) Scan(ctx context.Context) ([]Counter, error) {
	var counters []Counter
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+":*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan failed: %w", err)
		}

		for _, key := range keys {
			counter, ok := s.parseKey(key)
			if !ok {
				continue
			}
			val, err := s.client.Get(ctx, key).Int64()
			if err == redis.Nil {
				continue // expired between scan and get
			} else if err != nil {
				return nil, fmt.Errorf("redis get failed: %w", err)
			}
			counter.Value = val
			counters = append(counters, counter)
		}

		cursor = next
		if cursor == 0 {
			return counters, nil
		}
	}
}

func (s *RedisStore) parseKey(key string) (Counter, bool) {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) != 4 || parts[0] != s.prefix {
		return Counter{}, false
	}
	teamID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Counter{}, false
	}
	return Counter{TeamID: teamID, Feature: parts[2], Period: parts[3]}, true
}
