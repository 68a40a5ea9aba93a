package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/shop-order-service/internal/domain"
)

type entry struct {
	val       []byte
	expiresAt time.Time
}

// MemoryCache — TTL-кэш в памяти для тестов и локального запуска.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]entry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.val, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry{val: val, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
}

func (c *MemoryCache) DeleteByPrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

var _ domain.ProductCache = (*MemoryCache)(nil)
