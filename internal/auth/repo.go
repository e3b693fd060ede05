package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user User) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

const userColumns = `id, tenant_id, email, name, password_hash, role, is_active, created_at, updated_at`

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user and returns its id.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO users (tenant_id, email, name, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.TenantID, strings.ToLower(strings.TrimSpace(user.Email)), user.Name, user.PasswordHash, user.Role, user.IsActive,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, httpx.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
