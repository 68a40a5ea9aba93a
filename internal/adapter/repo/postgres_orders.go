package repo

import (
	"context"
	"errors"
	"time"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger — журнал заказов поверх pgx. Заказ и его позиции
// пишутся в одной транзакции.
type PostgresLedger struct {
	Pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{Pool: pool}
}

func (l *PostgresLedger) Create(ctx context.Context, o *domain.Order) error {
	tx, err := l.Pool.Begin(ctx)
	if err != nil {
		return infra("begin", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO orders(id, owner_id, total_amount, status, created_at) VALUES($1, $2, $3, $4, $5)`,
		o.ID, o.OwnerID, o.TotalAmount, o.Status, o.CreatedAt)
	if err != nil {
		return infra("insert order", err)
	}
	for _, it := range o.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items(order_id, product_id, quantity, price) VALUES($1, $2, $3, $4)`,
			o.ID, it.ProductID, it.Quantity, it.Price)
		if err != nil {
			return infra("insert order item", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return infra("commit order", err)
	}
	return nil
}

func (l *PostgresLedger) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := l.Pool.QueryRow(ctx,
		`SELECT id, owner_id, total_amount, status, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.OwnerID, &o.TotalAmount, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, infra("select order", err)
	}
	if err := l.loadItems(ctx, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (l *PostgresLedger) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := l.Pool.Query(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return infra("select order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return infra("scan order item", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (l *PostgresLedger) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	rows, err := l.Pool.Query(ctx,
		`SELECT id, owner_id, total_amount, status, created_at FROM orders
         WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, infra("select orders", err)
	}
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, infra("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, infra("iterate orders", err)
	}
	for i := range out {
		if err := l.loadItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *PostgresLedger) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	tag, err := l.Pool.Exec(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, infra("update order status", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := l.Pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, infra("check order", err)
		}
		if !exists {
			return false, domain.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (l *PostgresLedger) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Order, error) {
	rows, err := l.Pool.Query(ctx,
		`SELECT id, owner_id, total_amount, status, created_at FROM orders
         WHERE status = $1 AND created_at < $2`, domain.StatusPending, olderThan)
	if err != nil {
		return nil, infra("select stale orders", err)
	}
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, infra("scan stale order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, infra("iterate stale orders", err)
	}
	for i := range out {
		if err := l.loadItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

var _ domain.OrderLedger = (*PostgresLedger)(nil)
