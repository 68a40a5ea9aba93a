package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/shop-order-service/internal/domain"
)

// CancelOrder — отмена заказа владельцем. Публикует компенсирующее
// событие order-cancelled с позициями из журнала, а не из запроса:
// клиентскому payload здесь верить нельзя.
type CancelOrder struct {
	Ledger domain.OrderLedger
	Bus    domain.EventBus
	Log    *slog.Logger
}

func (uc CancelOrder) Execute(ctx context.Context, orderID, ownerID string) (domain.Order, error) {
	order, err := uc.Ledger.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.OwnerID != ownerID {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrAuthorization, orderID)
	}

	// CAS от текущего статуса; одна повторная попытка покрывает
	// гонку с параллельным подтверждением (confirmed тоже отменяем).
	for attempt := 0; attempt < 2; attempt++ {
		if !order.Cancellable() {
			return domain.Order{}, fmt.Errorf("%w: order %s already cancelled", domain.ErrConflict, orderID)
		}
		ok, err := uc.Ledger.UpdateStatus(ctx, orderID, order.Status, domain.StatusCancelled)
		if err != nil {
			return domain.Order{}, err
		}
		if ok {
			order.Status = domain.StatusCancelled
			if err := publishJSON(ctx, uc.Bus, domain.TopicOrderCancelled, domain.OrderEvent{
				OrderID: order.ID,
				Items:   domain.EventItemsOf(order.Items),
			}); err != nil {
				uc.Log.Error("publish order-cancelled failed", "order_id", order.ID, "err", err)
			}
			return order, nil
		}
		order, err = uc.Ledger.Get(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}
	}
	return domain.Order{}, fmt.Errorf("%w: order %s changed concurrently", domain.ErrConflict, orderID)
}
