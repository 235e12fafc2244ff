package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/avelinsk/gostore/internal/domain/catalog"
)

// Service applies cart business rules on top of the repositories.
type Service struct {
	carts    Repository
	products catalog.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products catalog.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// GetOrCreate returns the user's active cart, creating one when absent.
// Repeated calls without mutation return the same cart.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.carts.GetActiveByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "get active cart")
	}

	c, err = s.carts.Create(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// AddItem resolves the product's current price and adds quantity to the
// user's active cart. Re-adding a product merges into the existing line and
// keeps that line's original price_at_add; the freshly resolved price is only
// used when no line existed.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*AddItemResult, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	item, created, err := s.carts.UpsertItem(ctx, c.ID, productID, quantity, p.Price)
	if err != nil {
		return nil, errors.Wrap(err, "upsert cart item")
	}
	item.ProductName = p.Name
	item.ProductCategory = p.Category

	return &AddItemResult{Item: *item, Created: created}, nil
}

// UpdateItemQuantity overwrites a line's quantity. A quantity of zero or less
// removes the line and returns no item. Returns ErrNotFound when the user has
// no active cart and ErrItemNotFound when the product is not in it.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Item, error) {
	c, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if _, err := s.carts.RemoveItem(ctx, c.ID, productID); err != nil {
			return nil, errors.Wrap(err, "remove cart item")
		}
		return nil, nil
	}

	item, err := s.carts.UpdateItemQuantity(ctx, c.ID, productID, quantity)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes a line from the user's active cart and reports whether
// anything was removed.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	c, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.carts.RemoveItem(ctx, c.ID, productID)
}

// Clear deletes all lines of the user's active cart. The cart row itself is
// kept so its identity remains stable.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.carts.ClearItems(ctx, c.ID)
}

// Checkout marks the user's active non-empty cart as ordered and returns it.
// The cart is soft-transitioned, never deleted; a subsequent cart access will
// lazily create a fresh active cart.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.carts.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmpty
	}

	updated, err := s.carts.UpdateStatus(ctx, c.ID, StatusOrdered)
	if err != nil {
		return nil, errors.Wrap(err, "mark cart ordered")
	}
	return updated, nil
}
