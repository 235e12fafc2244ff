package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/avelinsk/gostore/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, user_id, status, total_amount, shipping_address, phone_number, notes, ordered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress,
		&o.PhoneNumber, &o.Notes, &o.OrderedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts the order header and fills the generated fields back in.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, total_amount, shipping_address, phone_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ordered_at, created_at, updated_at`,
		o.UserID, o.Status, o.TotalAmount, o.ShippingAddress, o.PhoneNumber, o.Notes,
	).Scan(&o.ID, &o.OrderedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "create order for user %s", o.UserID)
	}
	return nil
}

// AddItem appends a snapshot line to an order.
func (r *OrderRepository) AddItem(ctx context.Context, it *order.Item) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.PriceAtTime,
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "add item %s to order %s", it.ProductID, it.OrderID)
	}
	return nil
}

// GetByID returns an order with items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return r.attachItems(ctx, o)
}

// GetForUser returns the order only when owned by the user, or
// order.ErrNotFound. Ownership is enforced in the query so a foreign order is
// indistinguishable from a missing one.
func (r *OrderRepository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s for user %s", id, userID)
	}
	return r.attachItems(ctx, o)
}

func (r *OrderRepository) attachItems(ctx context.Context, o *order.Order) (*order.Order, error) {
	items, err := r.loadItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []order.Item{}
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]order.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price_at_time, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at`, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]order.Item, len(orderIDs))
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.PriceAtTime, &it.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

// ListForUser returns the user's orders, newest first, with items attached.
func (r *OrderRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %s", userID)
	}
	return r.collectOrders(ctx, rows)
}

// ListAll returns all orders, newest first, optionally filtered by status.
func (r *OrderRepository) ListAll(ctx context.Context, limit, offset int, status *order.Status) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset, status)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return r.collectOrders(ctx, rows)
}

func (r *OrderRepository) collectOrders(ctx context.Context, rows pgx.Rows) ([]order.Order, error) {
	defer rows.Close()

	orders := []order.Order{}
	ids := []uuid.UUID{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []order.Item{}
		}
	}
	return orders, nil
}

// UpdateStatus transitions an order and returns it with items attached.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update status of order %s", id)
	}
	return r.attachItems(ctx, o)
}

// UpdateFields applies a partial update to an order. Nil fields are skipped;
// an empty update degrades to a plain read.
func (r *OrderRepository) UpdateFields(ctx context.Context, id uuid.UUID, update order.FieldsUpdate) (*order.Order, error) {
	if update.Empty() {
		return r.GetByID(ctx, id)
	}

	set := []string{"updated_at = now()"}
	args := []any{id}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if update.Status != nil {
		set = append(set, "status = "+arg(*update.Status))
	}
	if update.ShippingAddress != nil {
		set = append(set, "shipping_address = "+arg(*update.ShippingAddress))
	}
	if update.PhoneNumber != nil {
		set = append(set, "phone_number = "+arg(*update.PhoneNumber))
	}
	if update.Notes != nil {
		set = append(set, "notes = "+arg(*update.Notes))
	}

	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET `+strings.Join(set, ", ")+` WHERE id = $1 RETURNING `+orderColumns,
		args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update order %s", id)
	}
	return r.attachItems(ctx, o)
}

// UpdateTotal persists the materialized total of an order.
func (r *OrderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET total_amount = $2, updated_at = now() WHERE id = $1`, id, total)
	if err != nil {
		return errors.Wrapf(err, "update total of order %s", id)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order and reports whether a row was removed. Line items
// are dropped by the cascade.
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrapf(err, "delete order %s", id)
	}
	return ct.RowsAffected() > 0, nil
}

// Count returns the number of orders, optionally for a single user.
func (r *OrderRepository) Count(ctx context.Context, userID *uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE ($1::uuid IS NULL OR user_id = $1)`, userID,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return n, nil
}
