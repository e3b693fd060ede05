package cashflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/db"
	"github.com/backoffice/backoffice/internal/shared"
)

// idempotencyModule namespaces cash flow keys in idempotency_keys.
const idempotencyModule = "cashflow"

// RepositoryPort defines data access for the cash flow ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, tenantID, id int64) (*Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	Summary(ctx context.Context, tenantID int64) (Summary, error)
	EntriesInOrder(ctx context.Context, tenantID int64) ([]Entry, error)
	LedgerTenants(ctx context.Context) ([]int64, error)
}

// TxRepository exposes the operations that run inside a transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, tenantID int64, key string) error
	LatestEntry(ctx context.Context, tenantID int64) (*Entry, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, time.Time, error)
	UpdateEntry(ctx context.Context, tenantID, id int64, category, description string) error
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
	tx          pgx.Tx
	audit       *shared.AuditLogger
	idempotency *shared.IdempotencyStore
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			tx:          tx,
			audit:       shared.NewAuditLogger(tx),
			idempotency: shared.NewIdempotencyStore(tx),
		})
	})
}

const entryColumns = `id, tenant_id, entry_date, kind, amount::text, running_balance::text,
	category, description, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e               Entry
		kind            string
		amount, balance string
	)
	if err := row.Scan(&e.ID, &e.TenantID, &e.EntryDate, &kind, &amount, &balance,
		&e.Category, &e.Description, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if e.RunningBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse running balance: %w", err)
	}
	e.Kind = ledger.Kind(kind)
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

// GetEntry loads a single entry of the tenant.
func (r *Repository) GetEntry(ctx context.Context, tenantID, id int64) (*Entry, error) {
	return scanEntry(r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM cashflow_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// ListEntries returns a page of entries, newest first, plus the total count.
func (r *Repository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("entry_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("entry_date <= $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cashflow_entries WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM cashflow_entries WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
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

// Summary aggregates inflows, outflows and the latest stored balance.
func (r *Repository) Summary(ctx context.Context, tenantID int64) (Summary, error) {
	var inflow, outflow, balance string
	var entries int
	err := r.pool.QueryRow(ctx, `SELECT
	COALESCE(SUM(amount) FILTER (WHERE kind = 'inflow'), 0)::text,
	COALESCE(SUM(amount) FILTER (WHERE kind = 'outflow'), 0)::text,
	COALESCE((SELECT running_balance FROM cashflow_entries WHERE tenant_id = $1 ORDER BY id DESC LIMIT 1), 0)::text,
	COUNT(*)
FROM cashflow_entries WHERE tenant_id = $1`, tenantID).Scan(&inflow, &outflow, &balance, &entries)
	if err != nil {
		return Summary{}, err
	}
	return parseSummary(inflow, outflow, balance, entries)
}

func parseSummary(inflow, outflow, balance string, entries int) (Summary, error) {
	s := Summary{Entries: entries}
	var err error
	if s.TotalInflow, err = decimal.NewFromString(inflow); err != nil {
		return Summary{}, fmt.Errorf("parse total inflow: %w", err)
	}
	if s.TotalOutflow, err = decimal.NewFromString(outflow); err != nil {
		return Summary{}, fmt.Errorf("parse total outflow: %w", err)
	}
	if s.CurrentBalance, err = decimal.NewFromString(balance); err != nil {
		return Summary{}, fmt.Errorf("parse current balance: %w", err)
	}
	return s, nil
}

// EntriesInOrder returns every entry of the tenant in insertion order.
func (r *Repository) EntriesInOrder(ctx context.Context, tenantID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM cashflow_entries WHERE tenant_id = $1 ORDER BY id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// LedgerTenants lists tenants that have at least one cash flow entry.
func (r *Repository) LedgerTenants(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM cashflow_entries ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, tenantID int64, key string) error {
	return t.idempotency.CheckAndInsert(ctx, tenantID, key, idempotencyModule)
}

// LatestEntry reads the most recently inserted entry, regardless of its date.
func (t *txRepo) LatestEntry(ctx context.Context, tenantID int64) (*Entry, error) {
	return scanEntry(t.tx.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM cashflow_entries WHERE tenant_id = $1 ORDER BY id DESC LIMIT 1`, tenantID))
}

func (t *txRepo) InsertEntry(ctx context.Context, e Entry) (int64, time.Time, error) {
	var (
		id        int64
		createdAt time.Time
	)
	err := t.tx.QueryRow(ctx, `INSERT INTO cashflow_entries
	(tenant_id, entry_date, kind, amount, running_balance, category, description, created_by)
VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8)
RETURNING id, created_at`,
		e.TenantID, e.EntryDate, string(e.Kind), e.Amount.String(), e.RunningBalance.String(),
		e.Category, e.Description, e.CreatedBy,
	).Scan(&id, &createdAt)
	return id, createdAt, err
}

func (t *txRepo) UpdateEntry(ctx context.Context, tenantID, id int64, category, description string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE cashflow_entries SET category = $3, description = $4, updated_at = NOW()
WHERE tenant_id = $1 AND id = $2`, tenantID, id, category, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteEntry(ctx context.Context, tenantID, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cashflow_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id)
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
