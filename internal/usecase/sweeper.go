package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/shop-order-service/internal/domain"
)

// Sweeper — фоновая сверка зависших заказов. Заказ, простоявший в
// pending дольше Age, означает потерянное или недообработанное
// событие; сверка переигрывает для него order-created. Благодаря
// идемпотентности обработчика повторное событие не списывает
// остаток ещё раз, но заново публикует inventory-confirmed.
type Sweeper struct {
	Ledger   domain.OrderLedger
	Bus      domain.EventBus
	Interval time.Duration
	Age      time.Duration
	Log      *slog.Logger

	Now func() time.Time
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Run крутит сверку до отмены контекста.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep — один проход сверки.
func (s *Sweeper) Sweep(ctx context.Context) {
	stale, err := s.Ledger.ListStalePending(ctx, s.now().Add(-s.Age))
	if err != nil {
		s.Log.Error("stale order scan failed", "err", err)
		return
	}
	for _, o := range stale {
		err := publishJSON(ctx, s.Bus, domain.TopicOrderCreated, domain.OrderEvent{
			OrderID: o.ID,
			Items:   domain.EventItemsOf(o.Items),
		})
		if err != nil {
			s.Log.Error("replay order-created failed", "order_id", o.ID, "err", err)
			continue
		}
		s.Log.Info("stale pending order replayed", "order_id", o.ID)
	}
}
