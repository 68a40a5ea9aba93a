package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shop-order-service/internal/config"
	"github.com/example/shop-order-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ItemRequest — запрошенная позиция заказа.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// CreateOrder — оформление заказа.
//
// В асинхронном режиме (по умолчанию) проверка остатка и его
// списание не атомарны: проверка читает счётчик, а списывает его
// позже обработчик события order-created. Конкурирующие заказы на
// последние единицы могут быть оба приняты, и остаток уйдёт в
// минус — это осознанная цена событийной хореографии.
// Синхронный режим закрывает гонку условным резервированием, но
// не публикует событий: заказ подтверждается на месте.
type CreateOrder struct {
	Catalog domain.CatalogStore
	Ledger  domain.OrderLedger
	Bus     domain.EventBus
	Log     *slog.Logger

	// Strategy — sequential либо fanout; обе дают одинаковый
	// результат при отсутствии конкуренции.
	Strategy string
	// Reservation — async либо sync.
	Reservation string
	// CatalogTimeout ограничивает каждое чтение каталога, чтобы
	// зависший вызов не подвешивал оформление заказа.
	CatalogTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

func (uc CreateOrder) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

func (uc CreateOrder) newID() string {
	if uc.NewID != nil {
		return uc.NewID()
	}
	return uuid.NewString()
}

func (uc CreateOrder) Execute(ctx context.Context, ownerID string, items []ItemRequest) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: no items in order", domain.ErrValidation)
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: non-positive quantity for product %s", domain.ErrValidation, it.ProductID)
		}
	}

	if uc.Reservation == config.ReservationSync {
		return uc.executeSync(ctx, ownerID, items)
	}

	var (
		orderItems []domain.OrderItem
		err        error
	)
	if uc.Strategy == config.StrategyFanout {
		orderItems, err = uc.validateFanout(ctx, items)
	} else {
		orderItems, err = uc.validateSequential(ctx, items)
	}
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:        uc.newID(),
		OwnerID:   ownerID,
		Items:     orderItems,
		Status:    domain.StatusPending,
		CreatedAt: uc.now(),
	}
	order.TotalAmount = order.Total()

	if err := uc.Ledger.Create(ctx, &order); err != nil {
		return domain.Order{}, err
	}

	if err := publishJSON(ctx, uc.Bus, domain.TopicOrderCreated, domain.OrderEvent{
		OrderID: order.ID,
		Items:   domain.EventItemsOf(order.Items),
	}); err != nil {
		// заказ уже записан; без события его добьёт фоновая сверка
		uc.Log.Error("publish order-created failed", "order_id", order.ID, "err", err)
	}

	return order, nil
}

// validateItem читает товар с таймаутом и проверяет остаток,
// фиксируя текущую цену.
func (uc CreateOrder) validateItem(ctx context.Context, it ItemRequest) (domain.OrderItem, error) {
	rCtx, cancel := context.WithTimeout(ctx, uc.CatalogTimeout)
	defer cancel()

	p, err := uc.Catalog.Get(rCtx, it.ProductID)
	if err != nil {
		if rCtx.Err() != nil && ctx.Err() == nil {
			return domain.OrderItem{}, fmt.Errorf("%w: catalog read timed out for product %s", domain.ErrTransient, it.ProductID)
		}
		return domain.OrderItem{}, fmt.Errorf("product %s: %w", it.ProductID, err)
	}
	if p.StockQuantity < it.Quantity {
		return domain.OrderItem{}, fmt.Errorf("%w: insufficient stock for product %s", domain.ErrValidation, p.Name)
	}
	return domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: p.Price}, nil
}

func (uc CreateOrder) validateSequential(ctx context.Context, items []ItemRequest) ([]domain.OrderItem, error) {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		oi, err := uc.validateItem(ctx, it)
		if err != nil {
			return nil, err
		}
		out = append(out, oi)
	}
	return out, nil
}

func (uc CreateOrder) validateFanout(ctx context.Context, items []ItemRequest) ([]domain.OrderItem, error) {
	out := make([]domain.OrderItem, len(items))
	g, gCtx := errgroup.WithContext(ctx)
	for i, it := range items {
		g.Go(func() error {
			oi, err := uc.validateItem(gCtx, it)
			if err != nil {
				return err
			}
			out[i] = oi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// executeSync — синхронное резервирование: условное списание по
// каждой позиции с компенсацией уже списанного при отказе.
// Сверка склада встроена в запрос, события не публикуются.
func (uc CreateOrder) executeSync(ctx context.Context, ownerID string, items []ItemRequest) (domain.Order, error) {
	reserved := make([]domain.OrderItem, 0, len(items))

	rollback := func() {
		for _, it := range reserved {
			if err := uc.Catalog.ApplyStockDelta(context.WithoutCancel(ctx), it.ProductID, it.Quantity); err != nil {
				uc.Log.Error("reservation rollback failed", "product_id", it.ProductID, "err", err)
			}
		}
	}

	for _, it := range items {
		rCtx, cancel := context.WithTimeout(ctx, uc.CatalogTimeout)
		p, err := uc.Catalog.Get(rCtx, it.ProductID)
		if err == nil {
			err = uc.Catalog.ReserveStock(rCtx, it.ProductID, it.Quantity)
		}
		cancel()
		if err != nil {
			rollback()
			if errors.Is(err, domain.ErrValidation) {
				return domain.Order{}, fmt.Errorf("%w: insufficient stock for product %s", domain.ErrValidation, p.Name)
			}
			return domain.Order{}, fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		reserved = append(reserved, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: p.Price})
	}

	order := domain.Order{
		ID:        uc.newID(),
		OwnerID:   ownerID,
		Items:     reserved,
		Status:    domain.StatusConfirmed,
		CreatedAt: uc.now(),
	}
	order.TotalAmount = order.Total()

	if err := uc.Ledger.Create(ctx, &order); err != nil {
		rollback()
		return domain.Order{}, err
	}
	return order, nil
}
