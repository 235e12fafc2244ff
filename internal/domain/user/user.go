// Package user holds the user identity model. Registration and credential
// management are handled by the auth subsystem outside this service; the core
// only needs identity and role for ownership and permission checks.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Role determines what a user may do with orders they do not own.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the identity attached to carts and orders.
type User struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Login     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Repository defines the user lookups the core depends on.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	// Upsert creates or updates a user by login. Used by seeding tools.
	Upsert(ctx context.Context, u *User, passwordHash string) (*User, error)
}
