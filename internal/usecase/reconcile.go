package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/shop-order-service/internal/domain"
)

// InventoryReconciler — обработчик событий заказов, единственный
// актор, меняющий остатки. Доставка at-least-once, поэтому каждое
// событие фиксируется в IdempotencyStore до применения дельт:
// повторная доставка не списывает и не возвращает остаток второй раз.
//
// Catalog должен быть кэширующим декоратором: инвалидация кэша
// выполняется внутри каждой дельты до возврата.
type InventoryReconciler struct {
	Catalog     domain.CatalogStore
	Idempotency domain.IdempotencyStore
	Bus         domain.EventBus
	Log         *slog.Logger
}

// HandleOrderCreated списывает остатки по позициям заказа и
// публикует inventory-confirmed. Подтверждение публикуется и для
// дубля: переигранное фоновой сверкой событие должно уметь
// дотолкнуть зависший в pending заказ.
func (r *InventoryReconciler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var ev domain.OrderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed order-created payload: %v", domain.ErrValidation, err)
	}
	fresh, err := r.Idempotency.MarkApplied(ctx, domain.TopicOrderCreated, ev.OrderID)
	if err != nil {
		return err
	}
	if fresh {
		for _, it := range ev.Items {
			if err := r.Catalog.ApplyStockDelta(ctx, it.ProductID, -it.Quantity); err != nil {
				return fmt.Errorf("decrement product %s: %w", it.ProductID, err)
			}
		}
		r.Log.Info("inventory deducted", "order_id", ev.OrderID)
	} else {
		r.Log.Info("duplicate order-created skipped", "order_id", ev.OrderID)
	}
	return publishJSON(ctx, r.Bus, domain.TopicInventoryConfirmed, domain.ConfirmationEvent{OrderID: ev.OrderID})
}

// HandleOrderCancelled возвращает остатки. Подтверждение назад не
// публикуется.
func (r *InventoryReconciler) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var ev domain.OrderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed order-cancelled payload: %v", domain.ErrValidation, err)
	}
	fresh, err := r.Idempotency.MarkApplied(ctx, domain.TopicOrderCancelled, ev.OrderID)
	if err != nil {
		return err
	}
	if !fresh {
		r.Log.Info("duplicate order-cancelled skipped", "order_id", ev.OrderID)
		return nil
	}
	for _, it := range ev.Items {
		if err := r.Catalog.ApplyStockDelta(ctx, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("restore product %s: %w", it.ProductID, err)
		}
	}
	r.Log.Info("inventory restored", "order_id", ev.OrderID)
	return nil
}
