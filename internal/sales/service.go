package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/events"
	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/cache"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Service provides business logic for sales outstanding.
type Service struct {
	repo      RepositoryPort
	cache     *cache.Versioned
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a sales service. A nil cache computes aging on every call.
func NewService(repo RepositoryPort, agingCache *cache.Versioned, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: agingCache, publisher: publisher, logger: logger, now: time.Now}
}

func tenantScope(tenantID int64) string {
	return "tenant-" + strconv.FormatInt(tenantID, 10)
}

// RecordEntry stores a sale with days outstanding computed at submission time.
func (s *Service) RecordEntry(ctx context.Context, in CreateEntryInput) (*Entry, error) {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	switch {
	case in.TenantID == 0:
		return nil, fmt.Errorf("%w: tenant required", httpx.ErrValidation)
	case in.InvoiceNumber == "":
		return nil, fmt.Errorf("%w: invoice number required", httpx.ErrValidation)
	case in.SaleDate.IsZero():
		return nil, fmt.Errorf("%w: sale date required", httpx.ErrValidation)
	}
	if err := shared.CheckMoney(in.Amount); err != nil {
		return nil, err
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = ledger.PaymentPending
	}
	if !in.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: payment status must be pending or paid", httpx.ErrValidation)
	}

	now := s.now().UTC()
	entry := Entry{
		TenantID:        in.TenantID,
		InvoiceNumber:   in.InvoiceNumber,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		Amount:          in.Amount,
		SaleDate:        in.SaleDate,
		PaymentStatus:   in.PaymentStatus,
		DaysOutstanding: ledger.SaleDaysOutstanding(in.SaleDate, now, in.PaymentStatus),
		CreatedBy:       in.ActorID,
	}
	if in.PaymentStatus == ledger.PaymentPaid {
		entry.PaidAt = &now
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, createdAt, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		entry.CreatedAt = createdAt
		entry.UpdatedAt = createdAt
		return tx.RecordAudit(ctx, shared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.ActorID,
			Action:   "create",
			Entity:   "sales_entry",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"invoice_number":   entry.InvoiceNumber,
				"amount":           entry.Amount.String(),
				"payment_status":   string(entry.PaymentStatus),
				"days_outstanding": entry.DaysOutstanding,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, in.TenantID)
	s.publish(ctx, events.TopicSalesRecorded, in.TenantID, RecordedEvent{
		EntryID:         entry.ID,
		InvoiceNumber:   entry.InvoiceNumber,
		Amount:          entry.Amount,
		SaleDate:        entry.SaleDate.Format(shared.DateLayout),
		PaymentStatus:   entry.PaymentStatus,
		DaysOutstanding: entry.DaysOutstanding,
	})
	return &entry, nil
}

// MarkPaid settles a pending sale. Days outstanding is fixed at zero from then on.
func (s *Service) MarkPaid(ctx context.Context, tenantID, actorID, id int64) (*Entry, error) {
	paidAt := s.now().UTC()
	var entry *Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.LockEntry(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if entry.PaymentStatus == ledger.PaymentPaid {
			return fmt.Errorf("%w: invoice %s is already paid", httpx.ErrConflict, entry.InvoiceNumber)
		}
		if err := tx.MarkPaid(ctx, tenantID, id, paidAt); err != nil {
			return err
		}
		entry.PaymentStatus = ledger.PaymentPaid
		entry.DaysOutstanding = ledger.SaleDaysOutstanding(entry.SaleDate, paidAt, ledger.PaymentPaid)
		entry.PaidAt = &paidAt
		entry.UpdatedAt = paidAt
		return tx.RecordAudit(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "pay",
			Entity:   "sales_entry",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"invoice_number": entry.InvoiceNumber},
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tenantID)
	s.publish(ctx, events.TopicSalesPaid, tenantID, PaidEvent{
		EntryID:       entry.ID,
		InvoiceNumber: entry.InvoiceNumber,
		PaidAt:        paidAt,
	})
	return entry, nil
}

// DeleteEntry removes a sale.
func (s *Service) DeleteEntry(ctx context.Context, tenantID, actorID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteEntry(ctx, tenantID, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "delete",
			Entity:   "sales_entry",
			EntityID: strconv.FormatInt(id, 10),
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// GetEntry returns a sale of the tenant.
func (s *Service) GetEntry(ctx context.Context, tenantID, id int64) (*Entry, error) {
	return s.repo.GetEntry(ctx, tenantID, id)
}

// ListEntries returns a page of sales and its pagination metadata.
func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, shared.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: status must be pending or paid", httpx.ErrValidation)
	}
	entries, total, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// AgingReport buckets pending amounts by days outstanding at asOf. Stored
// rows are not modified. Results are cached per tenant and date until the
// tenant's sales change.
func (s *Service) AgingReport(ctx context.Context, tenantID int64, asOf time.Time) (AgingReport, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = shared.Today(asOf)
	loader := func(ctx context.Context) (any, error) {
		return s.computeAging(ctx, tenantID, asOf)
	}

	key, err := s.cache.BuildKey(ctx, tenantScope(tenantID), "aging", asOf.Format(shared.DateLayout))
	if err != nil {
		s.logger.Warn("aging cache unavailable", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		return s.computeAging(ctx, tenantID, asOf)
	}
	var report AgingReport
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return AgingReport{}, err
	}
	return report, nil
}

func (s *Service) computeAging(ctx context.Context, tenantID int64, asOf time.Time) (AgingReport, error) {
	pending, err := s.repo.PendingAsOf(ctx, tenantID, asOf)
	if err != nil {
		return AgingReport{}, err
	}
	report := AgingReport{
		AsOf:       asOf.Format(shared.DateLayout),
		Current:    decimal.Zero,
		Days1To30:  decimal.Zero,
		Days31To60: decimal.Zero,
		Days61To90: decimal.Zero,
		Over90:     decimal.Zero,
		Total:      decimal.Zero,
	}
	for _, e := range pending {
		days := ledger.DaysOutstanding(e.SaleDate, asOf)
		switch {
		case days <= 0:
			report.Current = report.Current.Add(e.Amount)
		case days <= 30:
			report.Days1To30 = report.Days1To30.Add(e.Amount)
		case days <= 60:
			report.Days31To60 = report.Days31To60.Add(e.Amount)
		case days <= 90:
			report.Days61To90 = report.Days61To90.Add(e.Amount)
		default:
			report.Over90 = report.Over90.Add(e.Amount)
		}
		report.Total = report.Total.Add(e.Amount)
		report.Invoices++
	}
	return report, nil
}

// WarmAging fills the aging cache for every tenant with pending sales and
// returns how many tenants were processed.
func (s *Service) WarmAging(ctx context.Context, asOf time.Time) (int, error) {
	tenants, err := s.repo.SalesTenants(ctx)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, tenantID := range tenants {
		if _, err := s.AgingReport(ctx, tenantID, asOf); err != nil {
			return warmed, fmt.Errorf("warm tenant %d: %w", tenantID, err)
		}
		warmed++
	}
	return warmed, nil
}

func (s *Service) invalidate(ctx context.Context, tenantID int64) {
	if err := s.cache.Bump(ctx, tenantScope(tenantID)); err != nil {
		s.logger.Warn("bump aging cache", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, topic string, tenantID int64, data any) {
	evt := events.NewEvent(topic, tenantID, data)
	if err := s.publisher.Publish(ctx, topic, strconv.FormatInt(tenantID, 10), evt); err != nil {
		s.logger.Warn("publish sales event", slog.String("topic", topic), slog.Any("error", err))
	}
}
