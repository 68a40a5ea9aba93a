package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shop-order-service/internal/adapter/cache"
	"github.com/example/shop-order-service/internal/adapter/catalog"
	"github.com/example/shop-order-service/internal/adapter/repo"
	"github.com/example/shop-order-service/internal/config"
	"github.com/example/shop-order-service/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingBus запоминает публикации, ничего не доставляя.
type recordingBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	topic   string
	payload []byte
}

func (b *recordingBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.events = append(b.events, recordedEvent{topic: topic, payload: cp})
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, topic string, h domain.MessageHandler) error {
	return nil
}

func (b *recordingBus) byTopic(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]byte
	for _, e := range b.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

// env — полный набор зависимостей на памяти.
type env struct {
	store       *repo.MemoryCatalog
	catalog     domain.CatalogStore
	cache       *cache.MemoryCache
	ledger      *repo.MemoryLedger
	idempotency *repo.MemoryIdempotency
	bus         *recordingBus
}

func newEnv() *env {
	store := repo.NewMemoryCatalog()
	c := cache.NewMemoryCache()
	return &env{
		store:       store,
		catalog:     catalog.New(store, c, time.Hour),
		cache:       c,
		ledger:      repo.NewMemoryLedger(),
		idempotency: repo.NewMemoryIdempotency(),
		bus:         &recordingBus{},
	}
}

func (e *env) addProduct(id string, price float64, stock int64) {
	_ = e.catalog.Create(context.Background(), &domain.Product{
		ID: id, Name: "product " + id, Price: price, StockQuantity: stock,
	})
}

func (e *env) stock(id string) int64 {
	p, err := e.store.Get(context.Background(), id)
	if err != nil {
		return -1 << 62
	}
	return p.StockQuantity
}

func (e *env) createOrder() CreateOrder {
	return CreateOrder{
		Catalog:        e.catalog,
		Ledger:         e.ledger,
		Bus:            e.bus,
		Log:            testLogger(),
		Strategy:       config.StrategySequential,
		Reservation:    config.ReservationAsync,
		CatalogTimeout: time.Second,
	}
}

func (e *env) reconciler() *InventoryReconciler {
	return &InventoryReconciler{
		Catalog:     e.catalog,
		Idempotency: e.idempotency,
		Bus:         e.bus,
		Log:         testLogger(),
	}
}
