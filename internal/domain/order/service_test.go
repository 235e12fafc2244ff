package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinsk/gostore/internal/domain/catalog"
	"github.com/avelinsk/gostore/internal/domain/user"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[uuid.UUID]*catalog.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) Upsert(_ context.Context, _ *catalog.Product) error { return nil }

func (m *mockProductRepo) DecrementStock(_ context.Context, id uuid.UUID, by int) error {
	p := m.byID[id]
	if p.StockQuantity != nil {
		*p.StockQuantity -= by
	}
	return nil
}

type mockUserRepo struct {
	byID map[uuid.UUID]*user.User
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByLogin(_ context.Context, _ string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (m *mockUserRepo) Upsert(_ context.Context, u *user.User, _ string) (*user.User, error) {
	return u, nil
}

// mockOrderRepo stores orders and items in memory.
type mockOrderRepo struct {
	orders    map[uuid.UUID]*Order
	items     map[uuid.UUID][]Item
	deleteErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
		items:  make(map[uuid.UUID][]Item),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) AddItem(_ context.Context, it *Item) error {
	m.items[it.OrderID] = append(m.items[it.OrderID], *it)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = m.items[id]
	return &cp, nil
}

func (m *mockOrderRepo) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Order, error) {
	o, err := m.GetByID(ctx, id)
	if err != nil || o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListForUser(_ context.Context, userID uuid.UUID, _, _ int) ([]Order, error) {
	var out []Order
	for id, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			cp.Items = m.items[id]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context, _, _ int, status *Status) ([]Order, error) {
	var out []Order
	for id, o := range m.orders {
		if status != nil && o.Status != *status {
			continue
		}
		cp := *o
		cp.Items = m.items[id]
		out = append(out, cp)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	return m.GetByID(ctx, id)
}

func (m *mockOrderRepo) UpdateFields(ctx context.Context, id uuid.UUID, update FieldsUpdate) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Status != nil {
		o.Status = *update.Status
	}
	if update.ShippingAddress != nil {
		o.ShippingAddress = *update.ShippingAddress
	}
	if update.PhoneNumber != nil {
		o.PhoneNumber = *update.PhoneNumber
	}
	if update.Notes != nil {
		o.Notes = update.Notes
	}
	return m.GetByID(ctx, id)
}

func (m *mockOrderRepo) UpdateTotal(_ context.Context, id uuid.UUID, total decimal.Decimal) error {
	m.orders[id].TotalAmount = total
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.orders[id]
	delete(m.orders, id)
	delete(m.items, id)
	return ok, nil
}

func (m *mockOrderRepo) Count(_ context.Context, userID *uuid.UUID) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if userID == nil || o.UserID == *userID {
			n++
		}
	}
	return n, nil
}

// --- Helpers ---

func intPtr(v int) *int { return &v }

func newTestProduct(name, price string, stock *int) *catalog.Product {
	return &catalog.Product{
		ID:            uuid.New(),
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
}

type fixture struct {
	svc      *Service
	orders   *mockOrderRepo
	products *mockProductRepo
	userID   uuid.UUID
	adminID  uuid.UUID
}

func newFixture(products ...*catalog.Product) *fixture {
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	productRepo := &mockProductRepo{byID: byID}

	customer := &user.User{ID: uuid.New(), Login: "customer", Role: user.RoleUser}
	admin := &user.User{ID: uuid.New(), Login: "admin", Role: user.RoleAdmin}
	userRepo := &mockUserRepo{byID: map[uuid.UUID]*user.User{
		customer.ID: customer,
		admin.ID:    admin,
	}}

	orderRepo := newMockOrderRepo()
	return &fixture{
		svc:      NewService(orderRepo, productRepo, userRepo),
		orders:   orderRepo,
		products: productRepo,
		userID:   customer.ID,
		adminID:  admin.ID,
	}
}

func createRequest(items ...CreateItem) CreateRequest {
	return CreateRequest{
		ShippingAddress: "1 Main Street",
		PhoneNumber:     "+1000000",
		Items:           items,
	}
}

// --- Tests ---

func TestCreate_EmptyItems(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), f.userID, createRequest())
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	_, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 0}))

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, p.ID, iqErr.ProductID)
}

func TestCreate_UserNotFound(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	_, err := f.svc.Create(context.Background(), uuid.New(), createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestCreate_SnapshotsAndTotal(t *testing.T) {
	p := newTestProduct("Widget", "25.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 3}))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "75.00", o.TotalAmount.StringFixed(2))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Widget", o.Items[0].ProductName)
	assert.Equal(t, "25.00", o.Items[0].PriceAtTime.StringFixed(2))
	assert.Equal(t, "75.00", o.Items[0].Subtotal().StringFixed(2))
}

func TestCreate_SnapshotSurvivesPriceChange(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	p.Price = decimal.RequireFromString("99.99")
	p.Name = "Renamed Widget"

	reloaded, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", reloaded.Items[0].PriceAtTime.StringFixed(2))
	assert.Equal(t, "Widget", reloaded.Items[0].ProductName)
}

func TestCreate_ProductNotFound_NoPartialOrder(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), f.userID, createRequest(
		CreateItem{ProductID: p.ID, Quantity: 1},
		CreateItem{ProductID: missing, Quantity: 1},
	))

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, missing, pnfErr.ProductID)

	// The half-built order and its items must be fully gone.
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.orders.items)
}

func TestCreate_InsufficientStock(t *testing.T) {
	p := newTestProduct("Widget", "10.00", intPtr(2))
	f := newFixture(p)

	_, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 5}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Widget", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Available)
	assert.Empty(t, f.orders.orders)
}

func TestCreate_DecrementsTrackedStock(t *testing.T) {
	p := newTestProduct("Widget", "10.00", intPtr(5))
	f := newFixture(p)

	_, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 3}))
	require.NoError(t, err)
	assert.Equal(t, 2, *p.StockQuantity)
}

func TestCreate_CompensationFailureDistinguishable(t *testing.T) {
	f := newFixture()
	f.orders.deleteErr = errors.New("connection lost")

	_, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: uuid.New(), Quantity: 1}))

	var compErr *CompensationError
	require.ErrorAs(t, err, &compErr)
	assert.ErrorContains(t, compErr.CompensationErr, "connection lost")

	// The triggering failure stays reachable through Unwrap.
	var pnfErr *ProductNotFoundError
	assert.ErrorAs(t, err, &pnfErr)
}

func TestUpdateStatus_OwnerCancelsPending(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusCancelled, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
}

func TestUpdateStatus_OwnerForbiddenToShip(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), o.ID, StatusShipped, f.userID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_AdminAnyTransition(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), o.ID, StatusShipped, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, updated.Status)
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), StatusCancelled, f.userID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_StrangerForbidden(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	stranger := &user.User{ID: uuid.New(), Role: user.RoleUser}
	f.svc.users.(*mockUserRepo).byID[stranger.ID] = stranger

	addr := "2 Side Street"
	_, err = f.svc.Update(context.Background(), o.ID, FieldsUpdate{ShippingAddress: &addr}, stranger.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdate_OwnerUpdatesFields(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	addr := "2 Side Street"
	updated, err := f.svc.Update(context.Background(), o.ID, FieldsUpdate{ShippingAddress: &addr}, f.userID)
	require.NoError(t, err)
	assert.Equal(t, addr, updated.ShippingAddress)
	assert.Equal(t, "+1000000", updated.PhoneNumber, "unset fields stay untouched")
}

func TestDelete_RequiresCancelled(t *testing.T) {
	p := newTestProduct("Widget", "10.00", nil)
	f := newFixture(p)

	o, err := f.svc.Create(context.Background(), f.userID, createRequest(CreateItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrNotCancelled)

	_, err = f.svc.UpdateStatus(context.Background(), o.ID, StatusCancelled, f.adminID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), o.ID))

	_, err = f.orders.GetByID(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_NotFound(t *testing.T) {
	f := newFixture()

	err := f.svc.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
