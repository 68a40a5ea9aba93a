package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCancelOrder(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 10)

	create := e.createOrder()
	order, err := create.Execute(context.Background(), "owner-1", []ItemRequest{{ProductID: "p1", Quantity: 3}})
	require.NoError(t, err)

	cancel := CancelOrder{Ledger: e.ledger, Bus: e.bus, Log: testLogger()}

	t.Run("unknown order", func(t *testing.T) {
		_, err := cancel.Execute(context.Background(), "ghost", "owner-1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("foreign order", func(t *testing.T) {
		_, err := cancel.Execute(context.Background(), order.ID, "someone-else")
		require.ErrorIs(t, err, domain.ErrAuthorization)
	})

	t.Run("cancel pending", func(t *testing.T) {
		got, err := cancel.Execute(context.Background(), order.ID, "owner-1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusCancelled, got.Status)

		// событие собрано из позиций журнала, не из запроса клиента
		events := e.bus.byTopic(domain.TopicOrderCancelled)
		require.Len(t, events, 1)
		var ev domain.OrderEvent
		require.NoError(t, json.Unmarshal(events[0], &ev))
		require.Equal(t, order.ID, ev.OrderID)
		require.Equal(t, []domain.EventItem{{ProductID: "p1", Quantity: 3}}, ev.Items)
	})

	t.Run("second cancel conflicts and does not republish", func(t *testing.T) {
		_, err := cancel.Execute(context.Background(), order.ID, "owner-1")
		require.ErrorIs(t, err, domain.ErrConflict)
		require.Len(t, e.bus.byTopic(domain.TopicOrderCancelled), 1)
	})
}

// Отмена подтверждённого заказа разрешена: компенсирующее событие
// вернёт списанный остаток.
func TestCancelConfirmedOrder(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 10)

	create := e.createOrder()
	order, err := create.Execute(context.Background(), "owner-1", []ItemRequest{{ProductID: "p1", Quantity: 4}})
	require.NoError(t, err)

	rec := e.reconciler()
	for _, payload := range e.bus.byTopic(domain.TopicOrderCreated) {
		require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))
	}
	confirm := ConfirmOrder{Ledger: e.ledger, Log: testLogger()}
	for _, payload := range e.bus.byTopic(domain.TopicInventoryConfirmed) {
		require.NoError(t, confirm.Handle(context.Background(), payload))
	}
	require.EqualValues(t, 6, e.stock("p1"))

	cancel := CancelOrder{Ledger: e.ledger, Bus: e.bus, Log: testLogger()}
	got, err := cancel.Execute(context.Background(), order.ID, "owner-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, got.Status)

	for _, payload := range e.bus.byTopic(domain.TopicOrderCancelled) {
		require.NoError(t, rec.HandleOrderCancelled(context.Background(), payload))
	}
	require.EqualValues(t, 10, e.stock("p1"))
}
