package repo

import (
	"context"
	"fmt"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema — создать необходимые таблицы, если отсутствуют.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS products (
  id text PRIMARY KEY,
  name text NOT NULL,
  description text NOT NULL DEFAULT '',
  price numeric NOT NULL,
  stock_quantity bigint NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
  id text PRIMARY KEY,
  owner_id text NOT NULL,
  total_amount numeric NOT NULL,
  status text NOT NULL,
  created_at timestamptz NOT NULL
);
CREATE TABLE IF NOT EXISTS order_items (
  order_id text NOT NULL REFERENCES orders(id),
  product_id text NOT NULL,
  quantity bigint NOT NULL,
  price numeric NOT NULL
);
CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items(order_id);
CREATE TABLE IF NOT EXISTS applied_events (
  event_type text NOT NULL,
  order_id text NOT NULL,
  applied_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (event_type, order_id)
);`)
	return err
}

// infra помечает отказ хранилища как временную инфраструктурную
// ошибку; наружу она транслируется в 503.
func infra(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrTransient, op, err)
}
