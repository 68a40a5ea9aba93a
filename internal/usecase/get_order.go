package usecase

import (
	"context"
	"fmt"

	"github.com/example/shop-order-service/internal/domain"
)

// GetOrder — получить заказ с проверкой владельца.
type GetOrder struct {
	Ledger domain.OrderLedger
}

func (uc GetOrder) Execute(ctx context.Context, orderID, ownerID string) (domain.Order, error) {
	order, err := uc.Ledger.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.OwnerID != ownerID {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrAuthorization, orderID)
	}
	return order, nil
}

// ListMyOrders — все заказы владельца, новые первыми.
type ListMyOrders struct {
	Ledger domain.OrderLedger
}

func (uc ListMyOrders) Execute(ctx context.Context, ownerID string) ([]domain.Order, error) {
	return uc.Ledger.ListByOwner(ctx, ownerID)
}
