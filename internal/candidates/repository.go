package candidates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// RepositoryPort defines data access for candidates.
type RepositoryPort interface {
	Create(ctx context.Context, c Candidate) (*Candidate, error)
	Get(ctx context.Context, tenantID, id int64) (*Candidate, error)
	List(ctx context.Context, filter ListFilter) ([]Candidate, int, error)
	Update(ctx context.Context, c Candidate) (*Candidate, error)
	Delete(ctx context.Context, tenantID, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const columns = `id, tenant_id, name, email, phone, position, stage, notes, created_by, created_at, updated_at`

func scanCandidate(row pgx.Row) (*Candidate, error) {
	var c Candidate
	var stage string
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Position, &stage, &c.Notes,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	c.Stage = Stage(stage)
	return &c, nil
}

func duplicate(err error, email string) error {
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: candidate %s already exists", httpx.ErrDuplicate, email)
	}
	return err
}

// Create inserts a candidate.
func (r *Repository) Create(ctx context.Context, c Candidate) (*Candidate, error) {
	out, err := scanCandidate(r.q.QueryRow(ctx, `INSERT INTO candidates
	(tenant_id, name, email, phone, position, stage, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+columns,
		c.TenantID, c.Name, c.Email, c.Phone, c.Position, string(c.Stage), c.Notes, c.CreatedBy))
	if err != nil {
		return nil, duplicate(err, c.Email)
	}
	return out, nil
}

// Get loads a candidate of the tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Candidate, error) {
	return scanCandidate(r.q.QueryRow(ctx, `SELECT `+columns+` FROM candidates WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// List returns a page of candidates, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Candidate, int, error) {
	clause := "tenant_id = $1"
	args := []any{filter.TenantID}
	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		clause += " AND stage = $2"
	}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM candidates WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	rows, err := r.q.Query(ctx, fmt.Sprintf(`SELECT %s FROM candidates WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		columns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// Update overwrites the editable fields.
func (r *Repository) Update(ctx context.Context, c Candidate) (*Candidate, error) {
	out, err := scanCandidate(r.q.QueryRow(ctx, `UPDATE candidates
SET name = $3, email = $4, phone = $5, position = $6, stage = $7, notes = $8, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2
RETURNING `+columns,
		c.TenantID, c.ID, c.Name, c.Email, c.Phone, c.Position, string(c.Stage), c.Notes))
	if err != nil {
		return nil, duplicate(err, c.Email)
	}
	return out, nil
}

// Delete removes a candidate.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM candidates WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
