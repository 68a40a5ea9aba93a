package repo

import (
	"context"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotency — учёт применённых событий через SETNX. Подходит,
// когда обработчики масштабируются, а Postgres не используется.
type RedisIdempotency struct {
	Client *redis.Client
	// TTL ограничивает рост набора ключей; ноль — хранить вечно.
	TTL time.Duration
}

func NewRedisIdempotency(client *redis.Client, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{Client: client, TTL: ttl}
}

func (s *RedisIdempotency) MarkApplied(ctx context.Context, eventType, orderID string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, "applied:"+eventType+":"+orderID, 1, s.TTL).Result()
	if err != nil {
		return false, infra("setnx applied", err)
	}
	return ok, nil
}

var _ domain.IdempotencyStore = (*RedisIdempotency)(nil)
