package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/shop-order-service/internal/domain"
)

// DLQSuffix — суффикс топика мёртвых сообщений.
const DLQSuffix = ".dlq"

// Retry оборачивает обработчики событий: несколько попыток с
// экспоненциальной задержкой, после исчерпания полезная нагрузка
// публикуется в <топик>.dlq и сообщение подтверждается, чтобы не
// крутиться вечно. Без этого слоя постоянный отказ обработчика
// оставлял бы заказ в pending без какого-либо сигнала.
type Retry struct {
	Bus      domain.EventBus
	Attempts int
	Backoff  time.Duration
	Log      *slog.Logger
}

// Wrap возвращает обработчик с повторами и dead-letter.
func (r *Retry) Wrap(topic string, h domain.MessageHandler) domain.MessageHandler {
	return func(ctx context.Context, payload []byte) error {
		backoff := r.Backoff
		var err error
		for attempt := 1; attempt <= r.Attempts; attempt++ {
			if err = h(ctx, payload); err == nil {
				return nil
			}
			r.Log.Warn("event handler retry", "topic", topic, "attempt", attempt, "err", err)
			if attempt == r.Attempts {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		r.Log.Error("event dead-lettered", "topic", topic, "err", err)
		if pubErr := r.Bus.Publish(ctx, topic+DLQSuffix, payload); pubErr != nil {
			// dead-letter недоступен: не подтверждаем, пусть шина переотправит
			return pubErr
		}
		return nil
	}
}
