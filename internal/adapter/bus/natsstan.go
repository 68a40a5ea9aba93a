package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	stan "github.com/nats-io/stan.go"
)

// StanBus — шина поверх NATS Streaming. Подписки групповые и
// durable: экземпляры сервиса делят поток, непотверждённые
// сообщения переотправляются по истечении AckWait.
type StanBus struct {
	Conn    stan.Conn
	Group   string
	AckWait time.Duration
	Log     *slog.Logger
}

// ConnectStan устанавливает соединение; пустой clientID заменяется
// уникальным, чтобы экземпляры не выбивали друг друга.
func ConnectStan(clusterID, clientID, url string) (stan.Conn, error) {
	if clientID == "" {
		clientID = fmt.Sprintf("shop-svc-%d", time.Now().UnixNano())
	}
	return stan.Connect(clusterID, clientID, stan.NatsURL(url))
}

func (b *StanBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.Conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("%w: stan publish %s: %v", domain.ErrTransient, topic, err)
	}
	return nil
}

func (b *StanBus) Subscribe(ctx context.Context, topic string, h domain.MessageHandler) error {
	ackWait := b.AckWait
	if ackWait == 0 {
		ackWait = 10 * time.Second
	}
	_, err := b.Conn.QueueSubscribe(topic, b.Group, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), ackWait)
		defer cancel()
		if err := h(hCtx, m.Data); err != nil {
			// не подтверждаем, даём сообщению переотправиться
			b.Log.Error("handler failed", "topic", topic, "err", err)
			return
		}
		if err := m.Ack(); err != nil {
			b.Log.Error("ack failed", "topic", topic, "err", err)
		}
	}, stan.DurableName(b.Group+"-"+topic), stan.SetManualAckMode(),
		stan.AckWait(ackWait), stan.DeliverAllAvailable())
	if err != nil {
		return fmt.Errorf("%w: stan subscribe %s: %v", domain.ErrTransient, topic, err)
	}
	return nil
}

var _ domain.EventBus = (*StanBus)(nil)
