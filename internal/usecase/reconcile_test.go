package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func orderCreatedPayload(t *testing.T, orderID string, items ...domain.EventItem) []byte {
	t.Helper()
	b, err := json.Marshal(domain.OrderEvent{OrderID: orderID, Items: items})
	require.NoError(t, err)
	return b
}

func TestReconcilerDeductsAndConfirms(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 10)
	e.addProduct("p2", 100, 7)
	rec := e.reconciler()

	payload := orderCreatedPayload(t, "o1",
		domain.EventItem{ProductID: "p1", Quantity: 3},
		domain.EventItem{ProductID: "p2", Quantity: 2},
	)
	require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))

	require.EqualValues(t, 7, e.stock("p1"))
	require.EqualValues(t, 5, e.stock("p2"))

	confirmations := e.bus.byTopic(domain.TopicInventoryConfirmed)
	require.Len(t, confirmations, 1)
	var ev domain.ConfirmationEvent
	require.NoError(t, json.Unmarshal(confirmations[0], &ev))
	require.Equal(t, "o1", ev.OrderID)
}

// Шина даёт at-least-once: повторная доставка не должна списывать
// остаток второй раз, но подтверждение публикуется заново, чтобы
// переигранное событие могло дотолкнуть зависший заказ.
func TestReconcilerIdempotentOnRedelivery(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 10)
	rec := e.reconciler()

	payload := orderCreatedPayload(t, "o1", domain.EventItem{ProductID: "p1", Quantity: 4})
	require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))
	require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))
	require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))

	require.EqualValues(t, 6, e.stock("p1"))
	require.Len(t, e.bus.byTopic(domain.TopicInventoryConfirmed), 3)
}

func TestReconcilerRestoresOnCancellation(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 4)
	rec := e.reconciler()

	payload := orderCreatedPayload(t, "o1", domain.EventItem{ProductID: "p1", Quantity: 3})
	require.NoError(t, rec.HandleOrderCancelled(context.Background(), payload))
	require.EqualValues(t, 7, e.stock("p1"))

	// дубль отмены не возвращает остаток второй раз
	require.NoError(t, rec.HandleOrderCancelled(context.Background(), payload))
	require.EqualValues(t, 7, e.stock("p1"))

	// отмена не публикует подтверждений
	require.Empty(t, e.bus.byTopic(domain.TopicInventoryConfirmed))
}

// Списание и возврат по одному заказу учитываются независимо:
// по разу каждое, сколько бы раз события ни доставлялись.
func TestReconcilerExactlyOncePerEventType(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 10)
	rec := e.reconciler()

	created := orderCreatedPayload(t, "o1", domain.EventItem{ProductID: "p1", Quantity: 4})
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.HandleOrderCreated(context.Background(), created))
		require.NoError(t, rec.HandleOrderCancelled(context.Background(), created))
	}
	// 10 - 4 + 4
	require.EqualValues(t, 10, e.stock("p1"))
}

func TestReconcilerInvalidatesCache(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 10)
	rec := e.reconciler()

	// прогреваем кэш
	p, err := e.catalog.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 10, p.StockQuantity)

	payload := orderCreatedPayload(t, "o1", domain.EventItem{ProductID: "p1", Quantity: 3})
	require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))

	// следующее чтение видит свежий остаток, а не TTL-кэш
	p, err = e.catalog.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 7, p.StockQuantity)
}

func TestReconcilerNegativeStockRepresentable(t *testing.T) {
	e := newEnv()
	e.addProduct("p1", 100, 2)
	rec := e.reconciler()

	payload := orderCreatedPayload(t, "o1", domain.EventItem{ProductID: "p1", Quantity: 5})
	require.NoError(t, rec.HandleOrderCreated(context.Background(), payload))
	require.EqualValues(t, -3, e.stock("p1"))
}

func TestReconcilerMalformedPayload(t *testing.T) {
	e := newEnv()
	rec := e.reconciler()

	err := rec.HandleOrderCreated(context.Background(), []byte("{not json"))
	require.ErrorIs(t, err, domain.ErrValidation)
	err = rec.HandleOrderCancelled(context.Background(), []byte("{not json"))
	require.ErrorIs(t, err, domain.ErrValidation)
}
