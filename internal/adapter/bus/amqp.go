package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "shop-events"

// AMQPBus — шина поверх RabbitMQ: topic-exchange, по одной durable
// очереди на пару (топик, группа). Неподтверждённые сообщения
// возвращаются в очередь.
type AMQPBus struct {
	Ch    *amqp.Channel
	Group string
	Log   *slog.Logger
}

// ConnectAMQP подключается с несколькими попытками: брокер в
// контейнере может подниматься дольше сервиса.
func ConnectAMQP(url string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}

func (b *AMQPBus) Publish(ctx context.Context, topic string, payload []byte) error {
	err := b.Ch.PublishWithContext(ctx, exchangeName, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
	if err != nil {
		return fmt.Errorf("%w: amqp publish %s: %v", domain.ErrTransient, topic, err)
	}
	return nil
}

func (b *AMQPBus) Subscribe(ctx context.Context, topic string, h domain.MessageHandler) error {
	queue := b.Group + "." + topic
	q, err := b.Ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%w: declare queue %s: %v", domain.ErrTransient, queue, err)
	}
	if err := b.Ch.QueueBind(q.Name, topic, exchangeName, false, nil); err != nil {
		return fmt.Errorf("%w: bind queue %s: %v", domain.ErrTransient, queue, err)
	}
	msgs, err := b.Ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%w: consume %s: %v", domain.ErrTransient, queue, err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				if err := h(ctx, m.Body); err != nil {
					b.Log.Error("handler failed", "topic", topic, "err", err)
					_ = m.Nack(false, true)
					continue
				}
				_ = m.Ack(false)
			}
		}
	}()
	return nil
}

var _ domain.EventBus = (*AMQPBus)(nil)
