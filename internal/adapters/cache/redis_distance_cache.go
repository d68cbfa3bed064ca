package cache

import (
	"context"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "distance:"

type redisValue struct {
	Meters    float64 `json:"m"`
	Seconds   float64 `json:"s"`
	Reachable bool    `json:"r"`
}

// RedisDistanceCache stores one key per origin/destination pair with a TTL.
type RedisDistanceCache struct {
	Client redis.Cmdable
	TTL    time.Duration
}

func NewRedisDistanceCache(client redis.Cmdable, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{Client: client, TTL: ttl}
}

func redisKey(origin, destination string) string {
	return redisKeyPrefix + origin + "|" + destination
}

// Fetch cached distances for one origin and multiple destinations with a single MGET.
func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.redis.GetMany")(&err)

	if c.Client == nil {
		return nil, errors.New("distance cache: redis client is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	keys := make([]string, len(uniq))
	for i, d := range uniq {
		keys[i] = redisKey(origin, d)
	}

	vals, err := c.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get distance cache: redis mget: %w", err)
	}

	out := make(map[string]ports.DistanceResult, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rv redisValue
		if err := json.Unmarshal([]byte(s), &rv); err != nil {
			// Unreadable entries are treated as misses and overwritten on the next put.
			obs.Logger(ctx).WithError(err).WithField("key", keys[i]).Warn("distance cache: corrupt redis value")
			continue
		}
		out[uniq[i]] = ports.DistanceResult{
			DistanceMeters:  rv.Meters,
			DurationSeconds: rv.Seconds,
			Reachable:       rv.Reachable,
		}
	}
	return out, nil
}

// Store many cached distance results for a single origin in one pipeline.
func (c *RedisDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	if c.Client == nil {
		return errors.New("distance cache: redis client is nil")
	}
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	pipe := c.Client.Pipeline()
	for dest, r := range results {
		if dest == "" {
			return errors.New("insert distance cache: empty destination key")
		}
		b, err := json.Marshal(redisValue{Meters: r.DistanceMeters, Seconds: r.DurationSeconds, Reachable: r.Reachable})
		if err != nil {
			return fmt.Errorf("insert distance cache dest=%q: encode: %w", dest, err)
		}
		pipe.Set(ctx, redisKey(origin, dest), b, c.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert distance cache: redis pipeline: %w", err)
	}
	return nil
}
