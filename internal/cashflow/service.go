package cashflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/events"
	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Service handles cash flow business logic.
type Service struct {
	repo      RepositoryPort
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// RecordEntry stores a new entry whose running balance derives from the
// tenant's most recently inserted entry. Earlier entries are never touched,
// even when the new entry is backdated.
func (s *Service) RecordEntry(ctx context.Context, in CreateEntryInput) (*Entry, error) {
	if in.TenantID == 0 {
		return nil, fmt.Errorf("%w: tenant required", httpx.ErrValidation)
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: kind must be inflow or outflow", httpx.ErrValidation)
	}
	if err := shared.CheckMoney(in.Amount); err != nil {
		return nil, err
	}
	if in.EntryDate.IsZero() {
		return nil, fmt.Errorf("%w: date required", httpx.ErrValidation)
	}

	entry := Entry{
		TenantID:    in.TenantID,
		EntryDate:   in.EntryDate,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   in.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.IdempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, in.TenantID, in.IdempotencyKey); err != nil {
				return err
			}
		}
		previous := decimal.Zero
		latest, err := tx.LatestEntry(ctx, in.TenantID)
		switch {
		case err == nil:
			previous = latest.RunningBalance
		case !errors.Is(err, shared.ErrNotFound):
			return fmt.Errorf("load latest entry: %w", err)
		}
		entry.RunningBalance = ledger.RunningBalance(previous, in.Kind, in.Amount)
		if entry.RunningBalance.Abs().GreaterThanOrEqual(shared.MaxMoney) {
			return fmt.Errorf("%w: running balance would exceed %s", httpx.ErrValidation, shared.MaxMoney.String())
		}

		id, createdAt, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		entry.ID = id
		entry.CreatedAt = createdAt
		entry.UpdatedAt = createdAt

		return tx.RecordAudit(ctx, shared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.ActorID,
			Action:   "create",
			Entity:   "cashflow_entry",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"kind":            string(in.Kind),
				"amount":          in.Amount.String(),
				"running_balance": entry.RunningBalance.String(),
			},
		})
	})
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil, fmt.Errorf("%w: %v", httpx.ErrConflict, err)
		}
		return nil, err
	}

	s.publish(ctx, entry)
	return &entry, nil
}

func (s *Service) publish(ctx context.Context, entry Entry) {
	evt := events.NewEvent(events.TopicCashflowRecorded, entry.TenantID, RecordedEvent{
		EntryID:        entry.ID,
		EntryDate:      entry.EntryDate.Format(shared.DateLayout),
		Kind:           entry.Kind,
		Amount:         entry.Amount,
		RunningBalance: entry.RunningBalance,
	})
	key := strconv.FormatInt(entry.TenantID, 10)
	if err := s.publisher.Publish(ctx, events.TopicCashflowRecorded, key, evt); err != nil {
		s.logger.Warn("publish cashflow event", slog.Int64("entry_id", entry.ID), slog.Any("error", err))
	}
}

// GetEntry returns an entry of the tenant.
func (s *Service) GetEntry(ctx context.Context, tenantID, id int64) (*Entry, error) {
	return s.repo.GetEntry(ctx, tenantID, id)
}

// ListEntries returns a page of entries and its pagination metadata.
func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, shared.Pagination, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: kind must be inflow or outflow", httpx.ErrValidation)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: to must not precede from", httpx.ErrValidation)
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

// UpdateEntry changes category and description only.
func (s *Service) UpdateEntry(ctx context.Context, tenantID, actorID, id int64, in UpdateEntryInput) (*Entry, error) {
	existing, err := s.repo.GetEntry(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if in.Category == nil && in.Description == nil {
		return existing, nil
	}
	category, description := existing.Category, existing.Description
	if in.Category != nil {
		category = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateEntry(ctx, tenantID, id, category, description); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "update",
			Entity:   "cashflow_entry",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"category": category, "description": description},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetEntry(ctx, tenantID, id)
}

// DeleteEntry removes an entry. Later running balances are left as stored.
func (s *Service) DeleteEntry(ctx context.Context, tenantID, actorID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteEntry(ctx, tenantID, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "delete",
			Entity:   "cashflow_entry",
			EntityID: strconv.FormatInt(id, 10),
		})
	})
}

// Summary aggregates the tenant's ledger.
func (s *Service) Summary(ctx context.Context, tenantID int64) (Summary, error) {
	return s.repo.Summary(ctx, tenantID)
}

// ScanDrift replays the tenant's ledger in insertion order and reports
// stored balances that disagree with the replay, and entries dated before
// their predecessor. It never writes.
func (s *Service) ScanDrift(ctx context.Context, tenantID int64) (DriftReport, error) {
	entries, err := s.repo.EntriesInOrder(ctx, tenantID)
	if err != nil {
		return DriftReport{}, err
	}
	report := DriftReport{TenantID: tenantID, Entries: len(entries)}
	if len(entries) == 0 {
		return report, nil
	}

	kinds := make([]ledger.Kind, len(entries))
	amounts := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		kinds[i] = e.Kind
		amounts[i] = e.Amount
	}
	replayed := ledger.Replay(kinds, amounts)
	for i, e := range entries {
		if !e.RunningBalance.Equal(replayed[i]) {
			report.Mismatched++
			if report.FirstMismatchID == 0 {
				report.FirstMismatchID = e.ID
			}
		}
		if i > 0 && e.EntryDate.Before(entries[i-1].EntryDate) {
			report.Backdated++
		}
	}
	last := len(entries) - 1
	report.StoredBalance = entries[last].RunningBalance
	report.ReplayedBalance = replayed[last]
	return report, nil
}

// ScanAllDrift runs ScanDrift for every tenant with a ledger.
func (s *Service) ScanAllDrift(ctx context.Context) ([]DriftReport, error) {
	tenants, err := s.repo.LedgerTenants(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]DriftReport, 0, len(tenants))
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.ScanDrift(ctx, tenantID)
		if err != nil {
			return reports, fmt.Errorf("scan tenant %d: %w", tenantID, err)
		}
		if report.Drifted() || report.Backdated > 0 {
			s.logger.Warn("ledger drift",
				slog.Int64("tenant_id", tenantID),
				slog.Int("mismatched", report.Mismatched),
				slog.Int("backdated", report.Backdated))
		}
		reports = append(reports, report)
	}
	return reports, nil
}
