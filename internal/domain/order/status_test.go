package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinsk/gostore/internal/domain/user"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}

	_, err := ParseStatus("refunded")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCanTransition_AdminAnything(t *testing.T) {
	admin := &user.User{ID: uuid.New(), Role: user.RoleAdmin}
	o := &Order{UserID: uuid.New(), Status: StatusDelivered}

	for _, to := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, CanTransition(admin, o, to), "admin to %s", to)
	}
}

func TestCanTransition_OwnerCancelPending(t *testing.T) {
	owner := &user.User{ID: uuid.New(), Role: user.RoleUser}
	o := &Order{UserID: owner.ID, Status: StatusPending}

	assert.True(t, CanTransition(owner, o, StatusCancelled))
}

func TestCanTransition_OwnerDeniedOtherwise(t *testing.T) {
	owner := &user.User{ID: uuid.New(), Role: user.RoleUser}

	// Any non-cancel target on a pending order.
	pending := &Order{UserID: owner.ID, Status: StatusPending}
	for _, to := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		assert.False(t, CanTransition(owner, pending, to), "owner to %s", to)
	}

	// Cancelling once the order left pending.
	for _, from := range []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		o := &Order{UserID: owner.ID, Status: from}
		assert.False(t, CanTransition(owner, o, StatusCancelled), "owner cancel from %s", from)
	}
}

func TestCanTransition_StrangerDenied(t *testing.T) {
	stranger := &user.User{ID: uuid.New(), Role: user.RoleUser}
	o := &Order{UserID: uuid.New(), Status: StatusPending}

	assert.False(t, CanTransition(stranger, o, StatusCancelled))
}
