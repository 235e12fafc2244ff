// Package handler exposes the cart and order services over HTTP. Routing uses
// chi; every route below the auth middleware sees a resolved caller identity.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avelinsk/gostore/internal/domain/cart"
	"github.com/avelinsk/gostore/internal/domain/order"
	"github.com/avelinsk/gostore/internal/domain/user"
)

// CartService is the cart surface the handler depends on.
type CartService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.AddItemResult, error)
	UpdateItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.Item, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Checkout(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
}

// OrderService is the order surface the handler depends on.
type OrderService interface {
	Create(ctx context.Context, userID uuid.UUID, req order.CreateRequest) (*order.Order, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]order.Order, error)
	ListAll(ctx context.Context, limit, offset int, status *order.Status) ([]order.Order, error)
	Count(ctx context.Context, userID *uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status order.Status, callerID uuid.UUID) (*order.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, update order.FieldsUpdate, callerID uuid.UUID) (*order.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

// TokenVerifier checks a bearer token and returns the user it identifies.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	carts  CartService
	orders OrderService
	tokens TokenVerifier
	users  user.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(carts CartService, orders OrderService, tokens TokenVerifier, users user.Repository) *Handler {
	return &Handler{
		carts:  carts,
		orders: orders,
		tokens: tokens,
		users:  users,
	}
}

// Routes returns the authenticated API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.authenticate)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Get("/items", h.getCartItems)
		r.Post("/items", h.addCartItem)
		r.Put("/items/{productID}", h.updateCartItem)
		r.Delete("/items/{productID}", h.removeCartItem)
		r.Delete("/clear", h.clearCart)
		r.Post("/checkout", h.checkoutCart)
		r.Get("/{userID}", h.getUserCart)
		r.Delete("/{userID}/clear", h.clearUserCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listAllOrders)
		r.Get("/my", h.listMyOrders)
		r.Get("/my/{orderID}", h.getMyOrder)
		r.Get("/stats/count", h.countOrders)
		r.Patch("/{orderID}/status", h.updateOrderStatus)
		r.Patch("/{orderID}", h.updateOrder)
		r.Delete("/{orderID}", h.deleteOrder)
	})

	return r
}
