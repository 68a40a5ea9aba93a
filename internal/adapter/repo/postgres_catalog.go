package repo

import (
	"context"
	"errors"

	"github.com/example/shop-order-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCatalog — каталог товаров поверх pgx.
type PostgresCatalog struct {
	Pool *pgxpool.Pool
}

func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{Pool: pool}
}

func (c *PostgresCatalog) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := c.Pool.QueryRow(ctx,
		`SELECT id, name, description, price, stock_quantity FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, infra("select product", err)
	}
	return p, nil
}

func (c *PostgresCatalog) List(ctx context.Context, page, pageSize int) (domain.ProductPage, error) {
	offset := (page - 1) * pageSize
	rows, err := c.Pool.Query(ctx,
		`SELECT id, name, description, price, stock_quantity FROM products ORDER BY id LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return domain.ProductPage{}, infra("select products", err)
	}
	defer rows.Close()
	out := domain.ProductPage{Products: []domain.Product{}}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity); err != nil {
			return domain.ProductPage{}, infra("scan product", err)
		}
		out.Products = append(out.Products, p)
	}
	if err := rows.Err(); err != nil {
		return domain.ProductPage{}, infra("iterate products", err)
	}
	if err := c.Pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&out.Total); err != nil {
		return domain.ProductPage{}, infra("count products", err)
	}
	return out, nil
}

func (c *PostgresCatalog) Create(ctx context.Context, p *domain.Product) error {
	_, err := c.Pool.Exec(ctx,
		`INSERT INTO products(id, name, description, price, stock_quantity) VALUES($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity)
	if err != nil {
		return infra("insert product", err)
	}
	return nil
}

func (c *PostgresCatalog) Update(ctx context.Context, p domain.Product) error {
	tag, err := c.Pool.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4, stock_quantity = $5 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity)
	if err != nil {
		return infra("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *PostgresCatalog) Delete(ctx context.Context, id string) error {
	tag, err := c.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return infra("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyStockDelta — одиночный UPDATE с арифметикой на стороне базы,
// чтобы конкурентные обработчики не теряли обновления.
func (c *PostgresCatalog) ApplyStockDelta(ctx context.Context, id string, delta int64) error {
	tag, err := c.Pool.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return infra("apply stock delta", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *PostgresCatalog) ReserveStock(ctx context.Context, id string, qty int64) error {
	tag, err := c.Pool.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $2 WHERE id = $1 AND stock_quantity >= $2`,
		id, qty)
	if err != nil {
		return infra("reserve stock", err)
	}
	if tag.RowsAffected() == 0 {
		// либо товара нет, либо остатка не хватает
		if _, err := c.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrValidation
	}
	return nil
}

var _ domain.CatalogStore = (*PostgresCatalog)(nil)
