package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avelinsk/gostore/internal/domain/catalog"
	"github.com/avelinsk/gostore/internal/domain/user"
)

// CreateRequest holds the input for materializing an order.
type CreateRequest struct {
	ShippingAddress string
	PhoneNumber     string
	Notes           *string
	Items           []CreateItem
}

// CreateItem is one requested (product, quantity) pair.
type CreateItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service encapsulates order materialization and lifecycle business logic.
type Service struct {
	orders   Repository
	products catalog.Repository
	users    user.Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(orders Repository, products catalog.Repository, users user.Repository) *Service {
	return &Service{orders: orders, products: products, users: users}
}

// Create materializes an order for the user from the requested items,
// snapshotting each product's current name and price. The operation is
// all-or-nothing: when any item cannot be resolved or stocked, the half-built
// order is deleted before the failure is surfaced, so no partial order is
// ever left behind.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}

	o := &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          StatusPending,
		TotalAmount:     decimal.Zero,
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		Notes:           req.Notes,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	total := decimal.Zero
	for _, reqItem := range req.Items {
		p, err := s.products.GetByID(ctx, reqItem.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, s.compensate(ctx, o.ID, &ProductNotFoundError{ProductID: reqItem.ProductID})
			}
			return nil, s.compensate(ctx, o.ID, errors.Wrapf(err, "get product %s", reqItem.ProductID))
		}

		if p.StockTracked() && *p.StockQuantity < reqItem.Quantity {
			return nil, s.compensate(ctx, o.ID, &InsufficientStockError{
				ProductName: p.Name,
				Available:   *p.StockQuantity,
			})
		}

		item := &Item{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    reqItem.Quantity,
			PriceAtTime: p.Price,
		}
		if err := s.orders.AddItem(ctx, item); err != nil {
			return nil, s.compensate(ctx, o.ID, errors.Wrapf(err, "add order item %s", p.ID))
		}

		if p.StockTracked() {
			if err := s.products.DecrementStock(ctx, p.ID, reqItem.Quantity); err != nil {
				return nil, s.compensate(ctx, o.ID, errors.Wrapf(err, "decrement stock %s", p.ID))
			}
		}

		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(reqItem.Quantity))))
	}

	if err := s.orders.UpdateTotal(ctx, o.ID, total); err != nil {
		return nil, s.compensate(ctx, o.ID, errors.Wrap(err, "update order total"))
	}

	full, err := s.orders.GetByID(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "reload order")
	}
	return full, nil
}

// compensate deletes the half-built order and returns cause. The delete runs
// to completion before the failure is surfaced; when it fails itself, both
// errors are carried so the two failures stay distinguishable.
func (s *Service) compensate(ctx context.Context, orderID uuid.UUID, cause error) error {
	if _, err := s.orders.Delete(ctx, orderID); err != nil {
		return &CompensationError{Cause: cause, CompensationErr: err}
	}
	return cause
}

// GetForUser returns one of the user's own orders.
func (s *Service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	return s.orders.GetForUser(ctx, userID, orderID)
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	return s.orders.ListForUser(ctx, userID, limit, offset)
}

// ListAll returns all orders, optionally filtered by status. Callers are
// responsible for restricting this to administrators.
func (s *Service) ListAll(ctx context.Context, limit, offset int, status *Status) ([]Order, error) {
	return s.orders.ListAll(ctx, limit, offset, status)
}

// Count returns the number of orders, optionally for a single user.
func (s *Service) Count(ctx context.Context, userID *uuid.UUID) (int64, error) {
	return s.orders.Count(ctx, userID)
}

// UpdateStatus applies the lifecycle transition rules: administrators may set
// any status, owners may only cancel their own pending orders.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status, callerID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, errors.Wrap(err, "get caller")
	}

	if !CanTransition(caller, o, status) {
		return nil, ErrForbidden
	}

	return s.orders.UpdateStatus(ctx, orderID, status)
}

// Update applies a partial update to an order. Administrators may update any
// order; owners may update their own; everyone else is denied.
func (s *Service) Update(ctx context.Context, orderID uuid.UUID, update FieldsUpdate, callerID uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, errors.Wrap(err, "get caller")
	}

	if !caller.IsAdmin() && o.UserID != callerID {
		return nil, ErrForbidden
	}

	return s.orders.UpdateFields(ctx, orderID, update)
}

// Delete removes an order and its items. Only cancelled orders may be
// deleted; the admin-only restriction is enforced at the HTTP boundary.
func (s *Service) Delete(ctx context.Context, orderID uuid.UUID) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusCancelled {
		return ErrNotCancelled
	}

	if _, err := s.orders.Delete(ctx, orderID); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return nil
}
