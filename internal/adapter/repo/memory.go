package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/shop-order-service/internal/domain"
)

// MemoryCatalog — каталог в памяти для тестов и локального запуска.
type MemoryCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: make(map[string]domain.Product)}
}

func (c *MemoryCatalog) Get(ctx context.Context, id string) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) List(ctx context.Context, page, pageSize int) (domain.ProductPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := len(ids)
	start := (page - 1) * pageSize
	if start < 0 || start >= total {
		return domain.ProductPage{Products: []domain.Product{}, Total: total}, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out := make([]domain.Product, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, c.products[id])
	}
	return domain.ProductPage{Products: out, Total: total}, nil
}

func (c *MemoryCatalog) Create(ctx context.Context, p *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = *p
	return nil
}

func (c *MemoryCatalog) Update(ctx context.Context, p domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	c.products[p.ID] = p
	return nil
}

func (c *MemoryCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(c.products, id)
	return nil
}

func (c *MemoryCatalog) ApplyStockDelta(ctx context.Context, id string, delta int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.StockQuantity += delta
	c.products[id] = p
	return nil
}

func (c *MemoryCatalog) ReserveStock(ctx context.Context, id string, qty int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.StockQuantity < qty {
		return domain.ErrValidation
	}
	p.StockQuantity -= qty
	c.products[id] = p
	return nil
}

var _ domain.CatalogStore = (*MemoryCatalog)(nil)

// MemoryLedger — журнал заказов в памяти.
type MemoryLedger struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: make(map[string]domain.Order)}
}

func (l *MemoryLedger) Create(ctx context.Context, o *domain.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[o.ID] = *o
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, id string) (domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (l *MemoryLedger) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Order
	for _, o := range l.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (l *MemoryLedger) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	l.orders[id] = o
	return true, nil
}

func (l *MemoryLedger) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Order
	for _, o := range l.orders {
		if o.Status == domain.StatusPending && o.CreatedAt.Before(olderThan) {
			out = append(out, o)
		}
	}
	return out, nil
}

var _ domain.OrderLedger = (*MemoryLedger)(nil)

// MemoryIdempotency — учёт применённых событий в памяти.
// Годится только для одного экземпляра обработчика.
type MemoryIdempotency struct {
	mu      sync.Mutex
	applied map[string]struct{}
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{applied: make(map[string]struct{})}
}

func (s *MemoryIdempotency) MarkApplied(ctx context.Context, eventType, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := eventType + ":" + orderID
	if _, ok := s.applied[key]; ok {
		return false, nil
	}
	s.applied[key] = struct{}{}
	return true, nil
}

var _ domain.IdempotencyStore = (*MemoryIdempotency)(nil)
