package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore is a RateLimitStore backed by Redis sorted sets: one
// ZSET per key, member and score both the request's Unix-nanosecond
// timestamp. This gives the sliding-window algorithm exact per-request
// timestamps (same contract InMemoryRateLimitStore provides) while letting
// counters survive across API instances and process restarts, which the
// in-memory store can't do for a horizontally scaled deployment.
type RedisRateLimitStore struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewRedisRateLimitStore builds a store whose Redis keys are
// "<keyPrefix><rate-limit key>", matching the "rl:v2:<bucket>:<ip>" scheme
// the read-path rate limiter builds its keys with.
func NewRedisRateLimitStore(rdb *redis.Client, keyPrefix string) *RedisRateLimitStore {
	return &RedisRateLimitStore{rdb: rdb, keyPrefix: keyPrefix}
}

func (s *RedisRateLimitStore) zkey(key string) string {
	return s.keyPrefix + key
}

// AddRequest adds one member to the key's sorted set and refreshes its TTL
// so an idle key eventually disappears without a separate sweep.
func (s *RedisRateLimitStore) AddRequest(ctx context.Context, key string, timestamp time.Time) error {
	member := strconv.FormatInt(timestamp.UnixNano(), 10)
	zkey := s.zkey(key)
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(timestamp.UnixNano()), Member: member})
	pipe.Expire(ctx, zkey, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("AddRequest: %w", err)
	}
	return nil
}

// GetRequests returns every timestamp after cutoff, pruning anything older
// first so the sorted set doesn't grow unbounded between Cleanup passes.
func (s *RedisRateLimitStore) GetRequests(ctx context.Context, key string, cutoff time.Time) ([]time.Time, error) {
	zkey := s.zkey(key)
	if err := s.rdb.ZRemRangeByScore(ctx, zkey, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return nil, fmt.Errorf("GetRequests: prune: %w", err)
	}
	members, err := s.rdb.ZRangeByScore(ctx, zkey, &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff.UnixNano()+1, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("GetRequests: %w", err)
	}
	out := make([]time.Time, 0, len(members))
	for _, m := range members {
		nanos, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, time.Unix(0, nanos).UTC())
	}
	return out, nil
}

// GetRequestCount is the cheap path GetRequests' doc promises: ZCARD after
// the same prune, no member transfer.
func (s *RedisRateLimitStore) GetRequestCount(ctx context.Context, key string, cutoff time.Time) (int, error) {
	zkey := s.zkey(key)
	if err := s.rdb.ZRemRangeByScore(ctx, zkey, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return 0, fmt.Errorf("GetRequestCount: prune: %w", err)
	}
	count, err := s.rdb.ZCard(ctx, zkey).Result()
	if err != nil {
		return 0, fmt.Errorf("GetRequestCount: %w", err)
	}
	return int(count), nil
}

// CheckAndAddRequest implements AtomicRateLimitStore: prune, count, and
// conditionally add all happen inside one Redis transaction (MULTI/EXEC via
// TxPipeline), closing the TOCTOU window a separate GetRequestCount +
// AddRequest pair would leave open under concurrent requests for the same key.
func (s *RedisRateLimitStore) CheckAndAddRequest(ctx context.Context, key string, timestamp, cutoff time.Time, limit int) (bool, int, error) {
	zkey := s.zkey(key)

	if err := s.rdb.ZRemRangeByScore(ctx, zkey, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return false, 0, fmt.Errorf("CheckAndAddRequest: prune: %w", err)
	}
	count, err := s.rdb.ZCard(ctx, zkey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("CheckAndAddRequest: count: %w", err)
	}

	if int(count) >= limit {
		return false, int(count), nil
	}

	member := strconv.FormatInt(timestamp.UnixNano(), 10)
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, zkey, redis.Z{Score: float64(timestamp.UnixNano()), Member: member})
	pipe.Expire(ctx, zkey, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, int(count), fmt.Errorf("CheckAndAddRequest: add: %w", err)
	}
	return true, int(count) + 1, nil
}

// Cleanup prunes every key under keyPrefix. Keys also expire on their own
// (see AddRequest's Expire), so this is a best-effort sweep for keys whose
// TTL hasn't caught up yet, not the only reclamation path.
func (s *RedisRateLimitStore) Cleanup(ctx context.Context, cutoff time.Time) error {
	iter := s.rdb.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.ZRemRangeByScore(ctx, iter.Val(), "-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
			return fmt.Errorf("Cleanup: %w", err)
		}
	}
	return iter.Err()
}

// KeyCount scans for keys under keyPrefix. A full SCAN is acceptable here:
// it only runs from the metrics/health-check path, never per-request.
func (s *RedisRateLimitStore) KeyCount(ctx context.Context) (int, error) {
	count := 0
	iter := s.rdb.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("KeyCount: %w", err)
	}
	return count, nil
}

// MemoryUsage sums Redis's own MEMORY USAGE report across every key under
// keyPrefix. Like KeyCount, this is a monitoring-path operation only.
func (s *RedisRateLimitStore) MemoryUsage(ctx context.Context) (int64, error) {
	var total int64
	iter := s.rdb.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n, err := s.rdb.MemoryUsage(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		total += n
	}
	if err := iter.Err(); err != nil {
		return total, fmt.Errorf("MemoryUsage: %w", err)
	}
	return total, nil
}

var (
	_ RateLimitStore       = (*RedisRateLimitStore)(nil)
	_ AtomicRateLimitStore = (*RedisRateLimitStore)(nil)
)
