package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelinsk/gostore/internal/domain/catalog"
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a product with its category name resolved, or
// catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, ''), p.price, p.stock_quantity,
		       p.category_id, COALESCE(c.name, ''), p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.CategoryID, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return &p, nil
}

// Upsert creates or updates a product by identifier.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price, stock_quantity, category_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			category_id = EXCLUDED.category_id,
			updated_at = now()`,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.CategoryID)
	if err != nil {
		return errors.Wrapf(err, "upsert product %s", p.ID)
	}
	return nil
}

// DecrementStock reduces tracked stock by the given amount. Untracked
// products (NULL stock) are left untouched.
func (r *ProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, by int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity IS NOT NULL`, id, by)
	if err != nil {
		return errors.Wrapf(err, "decrement stock for product %s", id)
	}
	return nil
}

// UpsertCategory creates or updates a category. Used by seeding tools.
func (r *ProductRepository) UpsertCategory(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`,
		id, name)
	if err != nil {
		return errors.Wrapf(err, "upsert category %q", name)
	}
	return nil
}
