// Package order implements order materialization from item lists and the
// order status lifecycle.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order operations.
var (
	ErrNotFound     = errors.New("order not found")
	ErrForbidden    = errors.New("not enough permissions")
	ErrNotCancelled = errors.New("only cancelled orders can be deleted")
	ErrEmptyItems   = errors.New("items required")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID uuid.UUID
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a tracked product cannot cover the
// requested quantity.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s, available: %d", e.ProductName, e.Available)
}

// CompensationError reports that the compensating delete of a half-built
// order failed. Cause is the error that aborted materialization;
// CompensationErr is the delete failure. Unwrap exposes Cause so callers can
// still classify the original failure.
type CompensationError struct {
	Cause           error
	CompensationErr error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensating order delete failed: %v (after: %v)", e.CompensationErr, e.Cause)
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// Order is an immutable record of a purchase. Item snapshots and the
// persisted total never change after materialization; only status and
// shipping details may be updated.
type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Status          Status
	TotalAmount     decimal.Decimal
	ShippingAddress string
	PhoneNumber     string
	Notes           *string
	OrderedAt       time.Time
	Items           []Item
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is one line of an order with price and name snapshotted at
// materialization time.
type Item struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	PriceAtTime decimal.Decimal
	CreatedAt   time.Time
}

// Subtotal returns quantity × price_at_time for this line.
func (i Item) Subtotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FieldsUpdate carries a partial order update; nil fields are left unchanged.
type FieldsUpdate struct {
	Status          *Status
	ShippingAddress *string
	PhoneNumber     *string
	Notes           *string
}

// Empty reports whether the update would change nothing.
func (u FieldsUpdate) Empty() bool {
	return u.Status == nil && u.ShippingAddress == nil && u.PhoneNumber == nil && u.Notes == nil
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts the order header in pending status with a zero total.
	Create(ctx context.Context, o *Order) error
	// AddItem appends a snapshot line to an order.
	AddItem(ctx context.Context, it *Item) error
	// GetByID returns an order with items, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetForUser returns the order only when owned by the user, or ErrNotFound.
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error)
	ListAll(ctx context.Context, limit, offset int, status *Status) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error)
	UpdateFields(ctx context.Context, id uuid.UUID, update FieldsUpdate) (*Order, error)
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	// Delete removes the order; line items go with it via cascade.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// Count returns the number of orders, optionally for a single user.
	Count(ctx context.Context, userID *uuid.UUID) (int64, error)
}
