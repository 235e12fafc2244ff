package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/avelinsk/gostore/internal/domain/cart"
	"github.com/avelinsk/gostore/internal/domain/order"
)

// Monetary values cross the JSON boundary as floats; exact decimal arithmetic
// stays internal.

type cartItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"productId"`
	ProductName     string    `json:"productName"`
	ProductCategory string    `json:"productCategory,omitempty"`
	Quantity        int       `json:"quantity"`
	PriceAtAdd      float64   `json:"priceAtAdd"`
	Total           float64   `json:"total"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"userId"`
	Status    cart.Status        `json:"status"`
	Items     []cartItemResponse `json:"items"`
	Total     float64            `json:"total"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func toCartItemResponse(it cart.Item) cartItemResponse {
	return cartItemResponse{
		ID:              it.ID,
		ProductID:       it.ProductID,
		ProductName:     it.ProductName,
		ProductCategory: it.ProductCategory,
		Quantity:        it.Quantity,
		PriceAtAdd:      it.PriceAtAdd.InexactFloat64(),
		Total:           it.Total().InexactFloat64(),
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, toCartItemResponse(it))
	}
	return cartResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Status:    c.Status,
		Items:     items,
		Total:     c.Total().InexactFloat64(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	PriceAtTime float64   `json:"priceAtTime"`
	Subtotal    float64   `json:"subtotal"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"userId"`
	Status          order.Status        `json:"status"`
	TotalAmount     float64             `json:"totalAmount"`
	ShippingAddress string              `json:"shippingAddress"`
	PhoneNumber     string              `json:"phoneNumber"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []orderItemResponse `json:"items"`
	OrderedAt       time.Time           `json:"orderedAt"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			PriceAtTime: it.PriceAtTime.InexactFloat64(),
			Subtotal:    it.Subtotal().InexactFloat64(),
		})
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		ShippingAddress: o.ShippingAddress,
		PhoneNumber:     o.PhoneNumber,
		Notes:           o.Notes,
		Items:           items,
		OrderedAt:       o.OrderedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrderListResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}
