package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yigit/classroom/internal/metrics"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache is a JSON cache on top of Redis. A cache without a client is
// disabled: lookups miss and writes are dropped.
type RedisCache struct {
	client *redis.Client
	name   string
}

// NewRedisCache connects to Redis. An empty address, or a server that does not
// answer PING, yields a disabled cache so the service keeps working without it.
func NewRedisCache(ctx context.Context, name string, opts Options) *RedisCache {
	c := &RedisCache{name: name}
	if opts.Addr == "" {
		logger.Warn().Str("cache", name).Msg("Redis address not set, caching disabled")
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Str("addr", opts.Addr).Msg("Failed to connect to Redis, caching disabled")
		_ = client.Close()
		return c
	}

	logger.Info().Str("addr", opts.Addr).Str("cache", name).Msg("Connected to Redis")
	c.client = client
	return c
}

// NewWithClient wraps an existing client
func NewWithClient(name string, client *redis.Client) *RedisCache {
	return &RedisCache{client: client, name: name}
}

// Enabled reports whether a Redis client is attached
func (c *RedisCache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON decodes the cached value of key into dest and reports whether it was found
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequestsTotal.WithLabelValues(c.name, "miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues(c.name, "error").Inc()
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		// treat a corrupt entry as a miss and drop it
		_ = c.client.Del(ctx, key).Err()
		metrics.CacheRequestsTotal.WithLabelValues(c.name, "miss").Inc()
		return false, nil
	}
	metrics.CacheRequestsTotal.WithLabelValues(c.name, "hit").Inc()
	return true, nil
}

// SetJSON stores value under key for ttl
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close releases the connection
func (c *RedisCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
