package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelinsk/gostore/internal/domain/order"
	"github.com/avelinsk/gostore/internal/domain/user"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type createOrderItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type createOrderRequest struct {
	ShippingAddress string                   `json:"shippingAddress"`
	PhoneNumber     string                   `json:"phoneNumber"`
	Notes           *string                  `json:"notes"`
	Items           []createOrderItemRequest `json:"items"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type updateOrderRequest struct {
	Status          *string `json:"status"`
	ShippingAddress *string `json:"shippingAddress"`
	PhoneNumber     *string `json:"phoneNumber"`
	Notes           *string `json:"notes"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShippingAddress == "" || req.PhoneNumber == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "shipping address and phone number required")
		return
	}

	items := make([]order.CreateItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.CreateItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := h.orders.Create(r.Context(), u.ID, order.CreateRequest{
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		Notes:           req.Notes,
		Items:           items,
	})
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, skip := pagination(r)
	orders, err := h.orders.ListForUser(r.Context(), u.ID, limit, skip)
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) getMyOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.GetForUser(r.Context(), u.ID, orderID)
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !u.IsAdmin() {
		respondError(r.Context(), w, http.StatusForbidden, "not enough permissions")
		return
	}

	var status *order.Status
	if s := r.URL.Query().Get("status"); s != "" {
		parsed, err := order.ParseStatus(s)
		if err != nil {
			respondError(r.Context(), w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &parsed
	}

	limit, skip := pagination(r)
	orders, err := h.orders.ListAll(r.Context(), limit, skip, status)
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) countOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !u.IsAdmin() {
		respondError(r.Context(), w, http.StatusForbidden, "not enough permissions")
		return
	}

	var userID *uuid.UUID
	if s := r.URL.Query().Get("user_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(r.Context(), w, http.StatusBadRequest, "invalid user id")
			return
		}
		userID = &id
	}

	count, err := h.orders.Count(r.Context(), userID)
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, status, u.ID)
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := order.FieldsUpdate{
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		Notes:           req.Notes,
	}
	if req.Status != nil {
		status, err := order.ParseStatus(*req.Status)
		if err != nil {
			respondError(r.Context(), w, http.StatusBadRequest, "invalid status")
			return
		}
		update.Status = &status
	}

	o, err := h.orders.Update(r.Context(), orderID, update, u.ID)
	if err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	u, ok := identityFrom(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !u.IsAdmin() {
		respondError(r.Context(), w, http.StatusForbidden, "not enough permissions")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.Delete(r.Context(), orderID); err != nil {
		h.respondOrderError(r.Context(), w, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusNoContent, nil)
}

func pagination(r *http.Request) (limit, skip int) {
	limit = defaultPageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = min(n, maxPageLimit)
		}
	}
	if s := r.URL.Query().Get("skip"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			skip = n
		}
	}
	return limit, skip
}

func (h *Handler) respondOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		compensation      *order.CompensationError
		productNotFound   *order.ProductNotFoundError
		invalidQuantity   *order.InvalidQuantityError
		insufficientStock *order.InsufficientStockError
	)
	switch {
	// Checked before the cause-specific cases: CompensationError unwraps to
	// the trigger, and a failed compensating delete leaves a half-built order
	// persisted. That must not be reported as the trigger's 4xx.
	case errors.As(err, &compensation):
		zctx.From(ctx).Error("Order compensation failed, partial order persisted",
			zap.NamedError("compensation_error", compensation.CompensationErr),
			zap.NamedError("cause", compensation.Cause))
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	case errors.Is(err, order.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "order not found")
	case errors.Is(err, user.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "user not found")
	case errors.As(err, &productNotFound):
		respondError(ctx, w, http.StatusNotFound, productNotFound.Error())
	case errors.As(err, &invalidQuantity):
		respondError(ctx, w, http.StatusBadRequest, invalidQuantity.Error())
	case errors.As(err, &insufficientStock):
		respondError(ctx, w, http.StatusBadRequest, insufficientStock.Error())
	case errors.Is(err, order.ErrEmptyItems):
		respondError(ctx, w, http.StatusBadRequest, "items required")
	case errors.Is(err, order.ErrNotCancelled):
		respondError(ctx, w, http.StatusBadRequest, "only cancelled orders can be deleted")
	case errors.Is(err, order.ErrForbidden):
		respondError(ctx, w, http.StatusForbidden, "not enough permissions")
	default:
		zctx.From(ctx).Error("Order operation", zap.Error(err))
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}
