package repo

import (
	"context"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresIdempotency — общий для всех экземпляров учёт применённых
// событий. Вставка с ON CONFLICT DO NOTHING даёт атомарный
// «кто первый, тот и применяет».
type PostgresIdempotency struct {
	Pool *pgxpool.Pool
}

func NewPostgresIdempotency(pool *pgxpool.Pool) *PostgresIdempotency {
	return &PostgresIdempotency{Pool: pool}
}

func (s *PostgresIdempotency) MarkApplied(ctx context.Context, eventType, orderID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`INSERT INTO applied_events(event_type, order_id) VALUES($1, $2) ON CONFLICT DO NOTHING`,
		eventType, orderID)
	if err != nil {
		return false, infra("mark applied", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ domain.IdempotencyStore = (*PostgresIdempotency)(nil)
