package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/shop-order-service/internal/domain"
)

// ConfirmOrder — обработчик inventory-confirmed: переводит заказ
// из pending в confirmed. CAS по статусу гарантирует, что дубль
// подтверждения — no-op, а отменённый заказ не станет confirmed.
type ConfirmOrder struct {
	Ledger domain.OrderLedger
	Log    *slog.Logger
}

func (uc ConfirmOrder) Handle(ctx context.Context, payload []byte) error {
	var ev domain.ConfirmationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("%w: malformed inventory-confirmed payload: %v", domain.ErrValidation, err)
	}
	ok, err := uc.Ledger.UpdateStatus(ctx, ev.OrderID, domain.StatusPending, domain.StatusConfirmed)
	if errors.Is(err, domain.ErrNotFound) {
		// фоновый потребитель: наружу ошибку не поднимаем
		uc.Log.Warn("confirmation for unknown order dropped", "order_id", ev.OrderID)
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		uc.Log.Info("order not pending, confirmation ignored", "order_id", ev.OrderID)
		return nil
	}
	uc.Log.Info("order confirmed", "order_id", ev.OrderID)
	return nil
}
