package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avelinsk/gostore/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

const cartColumns = `id, user_id, status, created_at, updated_at`

func scanCart(row pgx.Row) (*cart.Cart, error) {
	var c cart.Cart
	err := row.Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetActiveByUser returns the user's active cart with items and product
// summaries attached, or cart.ErrNotFound.
func (r *CartRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, err := scanCart(r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE user_id = $1 AND status = 'active'`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get active cart for user %s", userID)
	}

	if c.Items, err = r.loadItems(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts an active cart for the user. The insert targets the partial
// unique index on active carts, so when a concurrent request won the race the
// existing cart is returned instead of an error.
func (r *CartRepository) Create(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, err := scanCart(r.pool.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING
		RETURNING `+cartColumns, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.GetActiveByUser(ctx, userID)
		}
		return nil, errors.Wrapf(err, "create cart for user %s", userID)
	}

	c.Items = []cart.Item{}
	return c, nil
}

func (r *CartRepository) loadItems(ctx context.Context, cartID uuid.UUID) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price_at_add,
		       p.name, COALESCE(c.name, ''), ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`, cartID)
	if err != nil {
		return nil, errors.Wrapf(err, "load items for cart %s", cartID)
	}
	defer rows.Close()

	items := []cart.Item{}
	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtAdd,
			&it.ProductName, &it.ProductCategory, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan cart item")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpsertItem inserts a line or merges quantity into the existing line for the
// same product. The single statement keeps concurrent adds for one product
// converging on a single row, and the conflict branch deliberately leaves
// price_at_add untouched: the price recorded at first add wins on merge.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, priceAtAdd decimal.Decimal) (*cart.Item, bool, error) {
	var (
		it      cart.Item
		created bool
	)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, price_at_add)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = now()
		RETURNING id, cart_id, product_id, quantity, price_at_add, created_at, updated_at,
		          (xmax = 0) AS inserted`,
		cartID, productID, quantity, priceAtAdd,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtAdd,
		&it.CreatedAt, &it.UpdatedAt, &created)
	if err != nil {
		return nil, false, errors.Wrapf(err, "upsert item %s in cart %s", productID, cartID)
	}
	return &it, created, nil
}

// UpdateItemQuantity overwrites the quantity of an existing line, or returns
// cart.ErrItemNotFound.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*cart.Item, error) {
	var it cart.Item
	err := r.pool.QueryRow(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE cart_id = $1 AND product_id = $2
		RETURNING id, cart_id, product_id, quantity, price_at_add, created_at, updated_at`,
		cartID, productID, quantity,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.PriceAtAdd, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, errors.Wrapf(err, "update item %s in cart %s", productID, cartID)
	}
	return &it, nil
}

// RemoveItem deletes a line and reports whether a row was removed.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return false, errors.Wrapf(err, "remove item %s from cart %s", productID, cartID)
	}
	return ct.RowsAffected() > 0, nil
}

// ClearItems deletes all lines of a cart.
func (r *CartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return errors.Wrapf(err, "clear cart %s", cartID)
	}
	return nil
}

// UpdateStatus transitions the cart and returns it with items attached.
func (r *CartRepository) UpdateStatus(ctx context.Context, cartID uuid.UUID, status cart.Status) (*cart.Cart, error) {
	c, err := scanCart(r.pool.QueryRow(ctx, `
		UPDATE carts SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+cartColumns, cartID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update status of cart %s", cartID)
	}

	if c.Items, err = r.loadItems(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}
