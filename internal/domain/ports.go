package domain

import (
	"context"
	"time"
)

// CatalogStore — порт авторитетного хранилища товаров.
// ApplyStockDelta обязан выполняться одной атомарной операцией
// на стороне хранилища, а не чтением с последующей записью:
// остаток меняют несколько обработчиков событий одновременно.
type CatalogStore interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, page, pageSize int) (ProductPage, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
	// ApplyStockDelta атомарно прибавляет delta (может быть
	// отрицательной) к остатку. Результат не ограничивается нулём.
	ApplyStockDelta(ctx context.Context, id string, delta int64) error
	// ReserveStock атомарно списывает qty только при достаточном
	// остатке; иначе ErrValidation. Используется синхронным
	// режимом резервирования.
	ReserveStock(ctx context.Context, id string, qty int64) error
}

// OrderLedger — порт персистентности заказов.
type OrderLedger interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	// UpdateStatus — compare-and-set статуса; false, если заказ
	// уже не в статусе from.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) (bool, error)
	// ListStalePending возвращает заказы, зависшие в pending
	// дольше порога; их переигрывает фоновая сверка.
	ListStalePending(ctx context.Context, olderThan time.Time) ([]Order, error)
}

// ProductCache — порт байтового кэша каталога. Ошибки инфраструктуры
// адаптер не поднимает наружу: чтение деградирует до промаха.
type ProductCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	DeleteByPrefix(ctx context.Context, prefix string)
}

// MessageHandler — обработчик доставленного сообщения. Ошибка
// означает «не подтверждать», шина доставит сообщение повторно.
type MessageHandler func(ctx context.Context, payload []byte) error

// EventBus — порт шины событий с семантикой at-least-once.
// Publish возвращается после передачи сообщения шине, не после
// его обработки подписчиками.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, h MessageHandler) error
}

// IdempotencyStore — порт учёта применённых событий. При
// горизонтальном масштабировании обработчиков должен быть общим
// хранилищем, иначе подавление дублей ломается между экземплярами.
type IdempotencyStore interface {
	// MarkApplied атомарно фиксирует пару (eventType, orderID);
	// false — пара уже была зафиксирована ранее.
	MarkApplied(ctx context.Context, eventType, orderID string) (bool, error)
}
