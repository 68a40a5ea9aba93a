package domain

// Топики шины событий. Имена и формат полей зафиксированы
// для совместимости между сервисами.
const (
	TopicOrderCreated       = "order-created"
	TopicOrderCancelled     = "order-cancelled"
	TopicInventoryConfirmed = "inventory-confirmed"
)

// EventItem — позиция заказа в событии (без цены: складу
// нужны только количества).
type EventItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// OrderEvent — полезная нагрузка order-created и order-cancelled.
type OrderEvent struct {
	OrderID string      `json:"orderId"`
	Items   []EventItem `json:"items"`
}

// ConfirmationEvent — полезная нагрузка inventory-confirmed.
type ConfirmationEvent struct {
	OrderID string `json:"orderId"`
}

// EventItemsOf переводит позиции заказа в формат события.
func EventItemsOf(items []OrderItem) []EventItem {
	out := make([]EventItem, 0, len(items))
	for _, it := range items {
		out = append(out, EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}
