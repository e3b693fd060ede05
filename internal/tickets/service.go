package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Auditor records changes; *shared.AuditLogger satisfies it.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service holds helpdesk rules.
type Service struct {
	repo   RepositoryPort
	audit  Auditor
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func validate(in Input) error {
	if in.Subject == "" {
		return fmt.Errorf("%w: subject required", httpx.ErrValidation)
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", httpx.ErrValidation, in.Priority)
	}
	if !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, in.Status)
	}
	return nil
}

// Create opens a ticket raised by the acting user.
func (s *Service) Create(ctx context.Context, tenantID, raisedBy int64, in Input) (*Ticket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Status == "" {
		in.Status = StatusOpen
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	t, err := s.repo.Create(ctx, Ticket{
		TenantID:    tenantID,
		Subject:     in.Subject,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		RaisedBy:    raisedBy,
		Assignee:    in.Assignee,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, raisedBy, "create", t.ID, map[string]any{"priority": string(t.Priority)})
	return t, nil
}

// Get returns a ticket of the tenant.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Ticket, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns a page of tickets and its pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Ticket, shared.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, filter.Status)
	}
	out, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if out == nil {
		out = []Ticket{}
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update edits a ticket. Closed tickets are read-only.
func (s *Service) Update(ctx context.Context, tenantID, actorID, id int64, in Input) (*Ticket, error) {
	existing, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == StatusClosed {
		return nil, fmt.Errorf("%w: ticket %d is closed", httpx.ErrConflict, id)
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = existing.Priority
	}
	if in.Status == "" {
		in.Status = existing.Status
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, Ticket{
		ID:          id,
		TenantID:    tenantID,
		Subject:     in.Subject,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		Assignee:    in.Assignee,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, actorID, "update", id, map[string]any{
		"from_status": string(existing.Status),
		"to_status":   string(updated.Status),
	})
	return updated, nil
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, tenantID, actorID, id int64) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.record(ctx, tenantID, actorID, "delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, tenantID, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "ticket",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit ticket", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
