// Package bus содержит адаптеры шины событий: встроенный в память,
// NATS Streaming и AMQP. Все дают at-least-once: сообщение
// доставляется повторно, пока обработчик не вернёт nil.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/shop-order-service/internal/domain"
)

type memorySub struct {
	ch chan []byte
}

type memoryTopic struct {
	backlog [][]byte
	subs    []*memorySub
}

// MemoryBus — шина в памяти. Публикации сохраняются в backlog и
// доигрываются опоздавшим подписчикам, как durable-подписка в STAN;
// это делает постановочные тесты детерминированными.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]*memoryTopic
	wg     sync.WaitGroup

	// RedeliveryDelay — пауза перед повторной доставкой после
	// ошибки обработчика.
	RedeliveryDelay time.Duration
	// MaxRedeliver — предел повторов, после него сообщение
	// считается потерянным и логируется.
	MaxRedeliver int
	Log          *slog.Logger
}

func NewMemoryBus(log *slog.Logger) *MemoryBus {
	return &MemoryBus{
		topics:          make(map[string]*memoryTopic),
		RedeliveryDelay: 10 * time.Millisecond,
		MaxRedeliver:    5,
		Log:             log,
	}
}

func (b *MemoryBus) topic(name string) *memoryTopic {
	t, ok := b.topics[name]
	if !ok {
		t = &memoryTopic{}
		b.topics[name] = t
	}
	return t
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	msg := make([]byte, len(payload))
	copy(msg, payload)

	b.mu.Lock()
	t := b.topic(topic)
	t.backlog = append(t.backlog, msg)
	subs := make([]*memorySub, len(t.subs))
	copy(subs, t.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.ch <- msg
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, h domain.MessageHandler) error {
	s := &memorySub{ch: make(chan []byte, 256)}

	b.mu.Lock()
	t := b.topic(topic)
	backlog := make([][]byte, len(t.backlog))
	copy(backlog, t.backlog)
	t.subs = append(t.subs, s)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for _, msg := range backlog {
			b.deliver(ctx, topic, h, msg)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-s.ch:
				b.deliver(ctx, topic, h, msg)
			}
		}
	}()
	return nil
}

func (b *MemoryBus) deliver(ctx context.Context, topic string, h domain.MessageHandler, msg []byte) {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return
		}
		err := h(ctx, msg)
		if err == nil {
			return
		}
		if attempt >= b.MaxRedeliver {
			b.Log.Error("message dropped after redeliveries", "topic", topic, "err", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.RedeliveryDelay):
		}
	}
}

// Drain дожидается остановки всех циклов доставки. Вызывать после
// отмены контекста подписок.
func (b *MemoryBus) Drain() { b.wg.Wait() }

var _ domain.EventBus = (*MemoryBus)(nil)
