package candidates

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

// Service holds recruitment pipeline rules.
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

func normalize(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Position = strings.TrimSpace(in.Position)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

func validate(in Input) error {
	if in.Name == "" {
		return fmt.Errorf("%w: name required", httpx.ErrValidation)
	}
	if in.Email == "" {
		return fmt.Errorf("%w: email required", httpx.ErrValidation)
	}
	if !in.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", httpx.ErrValidation, in.Stage)
	}
	return nil
}

// Create adds a candidate; the stage defaults to applied.
func (s *Service) Create(ctx context.Context, tenantID, actorID int64, in Input) (*Candidate, error) {
	in = normalize(in)
	if in.Stage == "" {
		in.Stage = StageApplied
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, Candidate{
		TenantID:  tenantID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Position:  in.Position,
		Stage:     in.Stage,
		Notes:     in.Notes,
		CreatedBy: actorID,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, actorID, "create", c.ID, map[string]any{"stage": string(c.Stage)})
	return c, nil
}

// Get returns a candidate of the tenant.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Candidate, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns a page of candidates and its pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Candidate, shared.Pagination, error) {
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown stage %q", httpx.ErrValidation, filter.Stage)
	}
	out, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if out == nil {
		out = []Candidate{}
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update replaces the candidate's fields. Hired and rejected are terminal
// stages: a candidate in one of them keeps it.
func (s *Service) Update(ctx context.Context, tenantID, actorID, id int64, in Input) (*Candidate, error) {
	existing, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	in = normalize(in)
	if in.Stage == "" {
		in.Stage = existing.Stage
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	if existing.Stage.Terminal() && in.Stage != existing.Stage {
		return nil, fmt.Errorf("%w: candidate is already %s", httpx.ErrValidation, existing.Stage)
	}
	updated, err := s.repo.Update(ctx, Candidate{
		ID:       id,
		TenantID: tenantID,
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Position: in.Position,
		Stage:    in.Stage,
		Notes:    in.Notes,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, actorID, "update", id, map[string]any{
		"from_stage": string(existing.Stage),
		"to_stage":   string(updated.Stage),
	})
	return updated, nil
}

// Delete removes a candidate.
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
		Entity:   "candidate",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit candidate", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
