package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelinsk/gostore/internal/domain/cart"
	"github.com/avelinsk/gostore/internal/domain/catalog"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.carts.GetOrCreate(r.Context(), u.ID)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) getCartItems(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.carts.GetOrCreate(r.Context(), u.ID)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}

	items := make([]cartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, toCartItemResponse(it))
	}
	respondJSON(r.Context(), w, http.StatusOK, items)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.carts.AddItem(r.Context(), u.ID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, toCartItemResponse(res.Item))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.carts.UpdateItemQuantity(r.Context(), u.ID, productID, req.Quantity)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	if item == nil {
		// Non-positive quantity removed the line.
		respondError(r.Context(), w, http.StatusNotFound, "item not found in cart")
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toCartItemResponse(*item))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid product id")
		return
	}

	removed, err := h.carts.RemoveItem(r.Context(), u.ID, productID)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	if !removed {
		respondError(r.Context(), w, http.StatusNotFound, "item not found in cart")
		return
	}
	respondJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.carts.Clear(r.Context(), u.ID); err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.carts.Checkout(r.Context(), u.ID)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) getUserCart(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !u.IsAdmin() && u.ID != targetID {
		respondError(r.Context(), w, http.StatusForbidden, "not enough permissions")
		return
	}

	c, err := h.carts.GetOrCreate(r.Context(), targetID)
	if err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearUserCart(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !u.IsAdmin() {
		respondError(r.Context(), w, http.StatusForbidden, "not enough permissions")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.carts.Clear(r.Context(), targetID); err != nil {
		h.respondCartError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *Handler) respondCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(ctx, w, http.StatusNotFound, "item not found in cart")
	case errors.Is(err, catalog.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(ctx, w, http.StatusBadRequest, "quantity must be greater than 0")
	case errors.Is(err, cart.ErrEmpty):
		respondError(ctx, w, http.StatusBadRequest, "cart is empty")
	default:
		zctx.From(ctx).Error("Cart operation", zap.Error(err))
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}
