// Package cart implements the shopping cart aggregate: the single active cart
// per user, its line items, and the aggregation rules applied to them.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart operations.
var (
	ErrNotFound        = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrEmpty           = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Status describes the cart lifecycle. A cart is active until checkout marks
// it ordered; ordered carts are kept as history and never reactivated.
type Status string

const (
	StatusActive  Status = "active"
	StatusOrdered Status = "ordered"
)

// Cart is a user's in-progress selection of products.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    Status
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns the exact decimal sum of quantity × price_at_add over all
// items. An empty cart totals zero.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Total())
	}
	return total
}

// Item is one (product, quantity) line in a cart. PriceAtAdd is the unit
// price captured when the product was first added; merging more quantity into
// an existing line does not refresh it.
type Item struct {
	ID         uuid.UUID
	CartID     uuid.UUID
	ProductID  uuid.UUID
	Quantity   int
	PriceAtAdd decimal.Decimal
	// Display-only product summary, populated on cart reads.
	ProductName     string
	ProductCategory string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Total returns quantity × price_at_add for this line.
func (i Item) Total() decimal.Decimal {
	return i.PriceAtAdd.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AddItemResult is the tagged outcome of an add: Created reports whether a new
// line was inserted (fresh price snapshot) or quantity was merged into an
// existing line (original snapshot retained).
type AddItemResult struct {
	Item    Item
	Created bool
}

// Repository defines persistence operations for carts and their items.
type Repository interface {
	// GetActiveByUser returns the user's active cart with items attached,
	// or ErrNotFound.
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// Create inserts an active cart for the user. When a concurrent request
	// already created one, the existing cart is returned instead.
	Create(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// UpsertItem inserts a line or merges quantity into an existing line for
	// the same product in a single atomic statement. The price argument only
	// applies to the insert path.
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int, priceAtAdd decimal.Decimal) (*Item, bool, error)
	// UpdateItemQuantity overwrites the quantity of an existing line, or
	// returns ErrItemNotFound.
	UpdateItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*Item, error)
	// RemoveItem deletes a line and reports whether a row was removed.
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	// ClearItems deletes all lines of a cart.
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	// UpdateStatus transitions the cart and returns it with items attached.
	UpdateStatus(ctx context.Context, cartID uuid.UUID, status Status) (*Cart, error)
}
