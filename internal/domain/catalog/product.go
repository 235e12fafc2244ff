// Package catalog exposes the product read model consumed by the cart and
// order engines. Catalog management itself (category/product CRUD endpoints)
// lives outside this service.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. Price is the current unit price; cart and order
// line items snapshot it at the moment they are created.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  *uuid.UUID
	Category    string
	// StockQuantity is nil when stock is not tracked for the product.
	// Tracked products reject orders exceeding the available quantity.
	StockQuantity *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StockTracked reports whether the product participates in stock accounting.
func (p *Product) StockTracked() bool {
	return p.StockQuantity != nil
}

// Repository defines the catalog operations the core depends on.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Upsert(ctx context.Context, p *Product) error
	// DecrementStock reduces the tracked stock of a product by the given
	// amount. It is a no-op for untracked products.
	DecrementStock(ctx context.Context, id uuid.UUID, by int) error
}
