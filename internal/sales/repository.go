package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// RepositoryPort defines data access for sales entries.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, tenantID, id int64) (*Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	PendingAsOf(ctx context.Context, tenantID int64, asOf time.Time) ([]Entry, error)
	SalesTenants(ctx context.Context) ([]int64, error)
}

// TxRepository exposes the operations that run inside a transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry Entry) (int64, time.Time, error)
	LockEntry(ctx context.Context, tenantID, id int64) (*Entry, error)
	MarkPaid(ctx context.Context, tenantID, id int64, paidAt time.Time) error
	DeleteEntry(ctx context.Context, tenantID, id int64) error
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx    pgx.Tx
	audit *shared.AuditLogger
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, audit: shared.NewAuditLogger(tx)})
	})
}

const entryColumns = `id, tenant_id, invoice_number, customer_name, amount::text, sale_date,
	payment_status, days_outstanding, paid_at, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e      Entry
		amount string
		status string
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.InvoiceNumber, &e.CustomerName, &amount, &e.SaleDate,
		&status, &e.DaysOutstanding, &e.PaidAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	e.PaymentStatus = ledger.PaymentStatus(status)
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEntry loads a single sale of the tenant.
func (r *Repository) GetEntry(ctx context.Context, tenantID, id int64) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM sales_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// ListEntries returns a page of sales, newest first, plus the total count.
func (r *Repository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	clause := "tenant_id = $1"
	args := []any{filter.TenantID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clause += " AND payment_status = $2"
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_entries WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM sales_entries WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PendingAsOf returns unpaid sales dated on or before asOf.
func (r *Repository) PendingAsOf(ctx context.Context, tenantID int64, asOf time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM sales_entries
WHERE tenant_id = $1 AND payment_status = 'pending' AND sale_date <= $2
ORDER BY sale_date, id`, tenantID, asOf)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// SalesTenants lists tenants with at least one pending sale.
func (r *Repository) SalesTenants(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM sales_entries WHERE payment_status = 'pending' ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepo) InsertEntry(ctx context.Context, e Entry) (int64, time.Time, error) {
	var (
		id        int64
		createdAt time.Time
	)
	err := t.tx.QueryRow(ctx, `INSERT INTO sales_entries
	(tenant_id, invoice_number, customer_name, amount, sale_date, payment_status, days_outstanding, paid_at, created_by)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
RETURNING id, created_at`,
		e.TenantID, e.InvoiceNumber, e.CustomerName, e.Amount.String(), e.SaleDate,
		string(e.PaymentStatus), e.DaysOutstanding, e.PaidAt, e.CreatedBy,
	).Scan(&id, &createdAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, time.Time{}, fmt.Errorf("%w: invoice %s already recorded", httpx.ErrDuplicate, e.InvoiceNumber)
		}
		return 0, time.Time{}, err
	}
	return id, createdAt, nil
}

func (t *txRepo) LockEntry(ctx context.Context, tenantID, id int64) (*Entry, error) {
	return scanEntry(t.tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM sales_entries WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id))
}

func (t *txRepo) MarkPaid(ctx context.Context, tenantID, id int64, paidAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales_entries
SET payment_status = 'paid', days_outstanding = 0, paid_at = $3, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2 AND payment_status = 'pending'`, tenantID, id, paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sale is not pending", httpx.ErrConflict)
	}
	return nil
}

func (t *txRepo) DeleteEntry(ctx context.Context, tenantID, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return t.audit.Record(ctx, log)
}

var _ RepositoryPort = (*Repository)(nil)
