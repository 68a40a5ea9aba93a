package domain

import "time"

// OrderStatus — статус жизненного цикла заказа.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderItem — позиция заказа. Price фиксируется в момент
// оформления и больше не пересчитывается.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order — доменная сущность заказа.
type Order struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Total — сумма заказа по зафиксированным ценам позиций.
func (o Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Cancellable сообщает, допускает ли текущий статус отмену.
// Отмена уже подтверждённого заказа разрешена: склад вернёт
// остатки компенсирующим событием.
func (o Order) Cancellable() bool {
	return o.Status != StatusCancelled
}
