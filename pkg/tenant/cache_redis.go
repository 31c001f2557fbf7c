package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/satizap/gateway/pkg/logger"
)

const (
	defaultRedisPrefix = "tenant:"
	redisScanBatch     = 200
)

// negativeEntry marks a cached "tenant does not exist" result.
var negativeEntry = []byte("null")

// RedisCache shares lookup results between gateway instances. Redis owns
// expiry, so Stats never reports expired entries. Redis errors degrade to
// cache misses and are logged.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

func WithRedisPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithRedisTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithRedisLogger(l *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    DefaultCacheTTL,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(identifier string) string {
	return c.prefix + identifier
}

func (c *RedisCache) Get(ctx context.Context, identifier string) (*Tenant, bool) {
	raw, err := c.client.Get(ctx, c.key(identifier)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "tenant cache read failed", logger.Tenant(identifier), logger.Error(err))
		}
		return nil, false
	}

	var t *Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		c.logger.WarnContext(ctx, "tenant cache entry is corrupt", logger.Tenant(identifier), logger.Error(err))
		return nil, false
	}
	return t, true
}

func (c *RedisCache) Set(ctx context.Context, identifier string, tenant *Tenant) {
	raw := negativeEntry
	if tenant != nil {
		var err error
		if raw, err = json.Marshal(tenant); err != nil {
			c.logger.WarnContext(ctx, "tenant cache encode failed", logger.Tenant(identifier), logger.Error(err))
			return
		}
	}
	if err := c.client.Set(ctx, c.key(identifier), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache write failed", logger.Tenant(identifier), logger.Error(err))
	}
}

func (c *RedisCache) Delete(ctx context.Context, identifier string) {
	if err := c.client.Del(ctx, c.key(identifier)).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache delete failed", logger.Tenant(identifier), logger.Error(err))
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	err := c.scan(ctx, func(keys []string) error {
		return c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		c.logger.WarnContext(ctx, "tenant cache clear failed", logger.Error(err))
	}
}

func (c *RedisCache) Stats(ctx context.Context) CacheStats {
	var stats CacheStats
	err := c.scan(ctx, func(keys []string) error {
		stats.Total += len(keys)
		return nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "tenant cache stats failed", logger.Error(err))
	}
	stats.Active = stats.Total
	return stats
}

func (c *RedisCache) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", redisScanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
