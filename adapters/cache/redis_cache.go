package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cropadvisor/domain/crop"
	"cropadvisor/internal"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cropadvisor:result:"

// RedisCache shares results between replicas. Lookup failures count as
// misses so a Redis outage degrades to recomputing.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *internal.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to addr and pings it
func NewRedisCache(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, logger: internal.DefaultLogger}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (*crop.Result, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false
	}
	if err != nil {
		r.logger.Warn("[RedisCache] get %s: %v", key, err)
		r.misses.Add(1)
		return nil, false
	}

	var result crop.Result
	if err := json.Unmarshal(val, &result); err != nil {
		r.logger.Warn("[RedisCache] dropping undecodable entry %s: %v", key, err)
		r.client.Del(ctx, keyPrefix+key)
		r.misses.Add(1)
		return nil, false
	}

	r.hits.Add(1)
	return &result, true
}

func (r *RedisCache) Set(ctx context.Context, key string, result *crop.Result) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err()
}

func (r *RedisCache) HitRate() float64 {
	hits, misses := r.hits.Load(), r.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
