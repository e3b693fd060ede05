package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/shared"
)

// RepositoryPort defines data access for tickets.
type RepositoryPort interface {
	Create(ctx context.Context, t Ticket) (*Ticket, error)
	Get(ctx context.Context, tenantID, id int64) (*Ticket, error)
	List(ctx context.Context, filter ListFilter) ([]Ticket, int, error)
	Update(ctx context.Context, t Ticket) (*Ticket, error)
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

const columns = `id, tenant_id, subject, description, priority, status, raised_by, assignee, created_at, updated_at`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	var priority, status string
	if err := row.Scan(&t.ID, &t.TenantID, &t.Subject, &t.Description, &priority, &status,
		&t.RaisedBy, &t.Assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	t.Priority = Priority(priority)
	t.Status = Status(status)
	return &t, nil
}

// Create inserts a ticket.
func (r *Repository) Create(ctx context.Context, t Ticket) (*Ticket, error) {
	return scanTicket(r.q.QueryRow(ctx, `INSERT INTO tickets
	(tenant_id, subject, description, priority, status, raised_by, assignee)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+columns,
		t.TenantID, t.Subject, t.Description, string(t.Priority), string(t.Status), t.RaisedBy, t.Assignee))
}

// Get loads a ticket of the tenant.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (*Ticket, error) {
	return scanTicket(r.q.QueryRow(ctx, `SELECT `+columns+` FROM tickets WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// List returns a page of tickets, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Ticket, int, error) {
	clause := "tenant_id = $1"
	args := []any{filter.TenantID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clause += " AND status = $2"
	}
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	rows, err := r.q.Query(ctx, fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		columns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

// Update overwrites the editable fields of a ticket that is not closed.
func (r *Repository) Update(ctx context.Context, t Ticket) (*Ticket, error) {
	return scanTicket(r.q.QueryRow(ctx, `UPDATE tickets
SET subject = $3, description = $4, priority = $5, status = $6, assignee = $7, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2 AND status <> 'closed'
RETURNING `+columns,
		t.TenantID, t.ID, t.Subject, t.Description, string(t.Priority), string(t.Status), t.Assignee))
}

// Delete removes a ticket.
func (r *Repository) Delete(ctx context.Context, tenantID, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tickets WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
