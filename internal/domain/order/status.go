package order

import (
	"github.com/go-faster/errors"

	"github.com/avelinsk/gostore/internal/domain/user"
)

// Status is the order lifecycle state. pending is initial; cancelled is
// terminal. Administrators may move an order between any states; customers
// may only cancel their own pending orders.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ErrInvalidStatus is returned when parsing an unknown status value.
var ErrInvalidStatus = errors.New("invalid order status")

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the caller may move the order to the target
// status. Administrators may perform any transition. Owners may only cancel
// an order that is still pending; everyone else is denied.
func CanTransition(caller *user.User, o *Order, to Status) bool {
	if caller.IsAdmin() {
		return true
	}
	if o.UserID != caller.ID {
		return false
	}
	return o.Status == StatusPending && to == StatusCancelled
}
