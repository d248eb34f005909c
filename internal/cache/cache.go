// Package cache is a thin JSON list cache over Redis, used for the
// homepage book shelves (popular, new collection, featured) that every
// visitor loads. Misses and Redis outages degrade to the database.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ListCache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, v any)
	Invalidate(ctx context.Context, keys ...string)
}

// New returns a Redis-backed cache, or a no-op one when no address is
// configured, so callers never branch on "is caching on".
func New(cfg *config.RedisConfig, logger *zap.Logger) ListCache {
	if cfg == nil || cfg.Addr == "" {
		return noopCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	return &redisCache{client: client, ttl: cfg.ListTTL, logger: logger}
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func (c *redisCache) GetJSON(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry is not decodable, dropping", zap.String("key", key))
		c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *redisCache) SetJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *redisCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", zap.Error(err))
	}
}

type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, any) bool { return false }
func (noopCache) SetJSON(context.Context, string, any)     {}
func (noopCache) Invalidate(context.Context, ...string)    {}
