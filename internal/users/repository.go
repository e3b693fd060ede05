package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const columns = `id, tenant_id, email, name, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns the tenant's users ordered by id.
func (r *Repository) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+columns+` FROM users WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches one user of the tenant.
func (r *Repository) GetUser(ctx context.Context, tenantID, id int64) (*User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// SetActive enables or disables login for a user.
func (r *Repository) SetActive(ctx context.Context, tenantID, id int64, active bool) (*User, error) {
	return scanUser(r.q.QueryRow(ctx, `UPDATE users SET is_active = $3, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2 RETURNING `+columns, tenantID, id, active))
}
