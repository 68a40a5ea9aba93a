package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache — кэш каталога поверх Redis. Отказ Redis не валит
// чтение: Get деградирует до промаха, запись и инвалидация
// логируются и пропускаются.
type RedisCache struct {
	Client *redis.Client
	Log    *slog.Logger
}

func NewRedisCache(client *redis.Client, log *slog.Logger) *RedisCache {
	return &RedisCache{Client: client, Log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.Log.Warn("redis get failed", "key", key, "err", err)
		return nil, false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := c.Client.Set(ctx, key, val, ttl).Err(); err != nil {
		c.Log.Warn("redis set failed", "key", key, "err", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		c.Log.Warn("redis del failed", "err", err)
	}
}

// DeleteByPrefix обходит ключи курсором SCAN вместо KEYS, чтобы не
// блокировать Redis на больших наборах.
func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	iter := c.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.Log.Warn("redis scan failed", "prefix", prefix, "err", err)
		return
	}
	c.Delete(ctx, keys...)
}

var _ domain.ProductCache = (*RedisCache)(nil)
