// Package catalog содержит кэширующий декоратор над хранилищем
// товаров. Вся инвалидация кэша сосредоточена здесь: любой
// мутирующий вызов, включая асинхронные дельты остатков, сбрасывает
// ключи до возврата управления вызывающему.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "products:"

func productKey(id string) string { return keyPrefix + id }

func pageKey(page, pageSize int) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, page, pageSize)
}

// Cached — read-through кэш поверх CatalogStore.
type Cached struct {
	store domain.CatalogStore
	cache domain.ProductCache
	ttl   time.Duration
	group singleflight.Group
}

func New(store domain.CatalogStore, cache domain.ProductCache, ttl time.Duration) *Cached {
	return &Cached{store: store, cache: cache, ttl: ttl}
}

func (c *Cached) Get(ctx context.Context, id string) (domain.Product, error) {
	key := productKey(id)
	if raw, ok := c.cache.Get(ctx, key); ok {
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		// битая запись в кэше: перечитываем из хранилища
		c.cache.Delete(ctx, key)
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.store.Get(ctx, id)
		if err != nil {
			return domain.Product{}, err
		}
		if raw, err := json.Marshal(p); err == nil {
			c.cache.Set(ctx, key, raw, c.ttl)
		}
		return p, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}

func (c *Cached) List(ctx context.Context, page, pageSize int) (domain.ProductPage, error) {
	key := pageKey(page, pageSize)
	if raw, ok := c.cache.Get(ctx, key); ok {
		var pp domain.ProductPage
		if err := json.Unmarshal(raw, &pp); err == nil {
			return pp, nil
		}
		c.cache.Delete(ctx, key)
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		pp, err := c.store.List(ctx, page, pageSize)
		if err != nil {
			return domain.ProductPage{}, err
		}
		if raw, err := json.Marshal(pp); err == nil {
			c.cache.Set(ctx, key, raw, c.ttl)
		}
		return pp, nil
	})
	if err != nil {
		return domain.ProductPage{}, err
	}
	return v.(domain.ProductPage), nil
}

func (c *Cached) Create(ctx context.Context, p *domain.Product) error {
	if err := c.store.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *Cached) Update(ctx context.Context, p domain.Product) error {
	if err := c.store.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *Cached) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *Cached) ApplyStockDelta(ctx context.Context, id string, delta int64) error {
	if err := c.store.ApplyStockDelta(ctx, id, delta); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *Cached) ReserveStock(ctx context.Context, id string, qty int64) error {
	if err := c.store.ReserveStock(ctx, id, qty); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// invalidate сбрасывает ключ товара и все страничные ключи.
// Широкая инвалидация страниц проще и достаточна.
func (c *Cached) invalidate(ctx context.Context, id string) {
	c.cache.Delete(ctx, productKey(id))
	c.cache.DeleteByPrefix(ctx, keyPrefix)
}

var _ domain.CatalogStore = (*Cached)(nil)
