package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalogStock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	require.NoError(t, c.Create(ctx, &domain.Product{ID: "p1", Name: "x", StockQuantity: 10}))

	require.NoError(t, c.ApplyStockDelta(ctx, "p1", -4))
	require.NoError(t, c.ApplyStockDelta(ctx, "p1", 1))
	p, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	require.EqualValues(t, 7, p.StockQuantity)

	// дельта не ограничивается нулём
	require.NoError(t, c.ApplyStockDelta(ctx, "p1", -10))
	p, _ = c.Get(ctx, "p1")
	require.EqualValues(t, -3, p.StockQuantity)

	require.ErrorIs(t, c.ApplyStockDelta(ctx, "ghost", 1), domain.ErrNotFound)
}

func TestMemoryCatalogReserveStock(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	require.NoError(t, c.Create(ctx, &domain.Product{ID: "p1", Name: "x", StockQuantity: 10}))

	// конкурентные резервы не уводят остаток в минус
	var wg sync.WaitGroup
	var mu sync.Mutex
	var granted int
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.ReserveStock(ctx, "p1", 1); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 10, granted)

	p, _ := c.Get(ctx, "p1")
	require.EqualValues(t, 0, p.StockQuantity)
	require.ErrorIs(t, c.ReserveStock(ctx, "p1", 1), domain.ErrValidation)
}

func TestMemoryCatalogList(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, c.Create(ctx, &domain.Product{ID: id, Name: id}))
	}

	pp, err := c.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 5, pp.Total)
	require.Len(t, pp.Products, 2)

	pp, err = c.List(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, pp.Products, 1)

	pp, err = c.List(ctx, 4, 2)
	require.NoError(t, err)
	require.Empty(t, pp.Products)
}

func TestMemoryLedgerUpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Create(ctx, &domain.Order{ID: "o1", OwnerID: "u", Status: domain.StatusPending, CreatedAt: time.Now()}))

	ok, err := l.UpdateStatus(ctx, "o1", domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	require.True(t, ok)

	// статус уже не pending: CAS не проходит
	ok, err = l.UpdateStatus(ctx, "o1", domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = l.UpdateStatus(ctx, "ghost", domain.StatusPending, domain.StatusConfirmed)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryLedgerListStalePending(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	now := time.Now().UTC()

	require.NoError(t, l.Create(ctx, &domain.Order{ID: "old", Status: domain.StatusPending, CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, l.Create(ctx, &domain.Order{ID: "new", Status: domain.StatusPending, CreatedAt: now}))
	require.NoError(t, l.Create(ctx, &domain.Order{ID: "done", Status: domain.StatusConfirmed, CreatedAt: now.Add(-time.Hour)}))

	stale, err := l.ListStalePending(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, "old", stale[0].ID)
}

func TestMemoryIdempotency(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotency()

	fresh, err := s.MarkApplied(ctx, "order-created", "o1")
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = s.MarkApplied(ctx, "order-created", "o1")
	require.NoError(t, err)
	require.False(t, fresh)

	// другой тип события по тому же заказу учитывается отдельно
	fresh, err = s.MarkApplied(ctx, "order-cancelled", "o1")
	require.NoError(t, err)
	require.True(t, fresh)
}
