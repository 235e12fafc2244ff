package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelinsk/gostore/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, login, role, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Login, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by identifier, or user.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get user %s", id)
	}
	return u, nil
}

// GetByLogin returns a user by login, or user.ErrNotFound.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*user.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = $1`, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get user by login %q", login)
	}
	return u, nil
}

// Upsert creates or updates a user keyed by login and returns the stored row.
func (r *UserRepository) Upsert(ctx context.Context, u *user.User, passwordHash string) (*user.User, error) {
	stored, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, login, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (login) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			updated_at = now()
		RETURNING `+userColumns,
		u.FirstName, u.LastName, u.Login, passwordHash, u.Role))
	if err != nil {
		return nil, errors.Wrapf(err, "upsert user %q", u.Login)
	}
	return stored, nil
}
