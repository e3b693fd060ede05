package users

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, tenantID int64) ([]User, error)
	GetUser(ctx context.Context, tenantID, id int64) (*User, error)
	SetActive(ctx context.Context, tenantID, id int64, active bool) (*User, error)
}

// Creator provisions accounts with a hashed password; *auth.Service satisfies it.
type Creator interface {
	CreateUser(ctx context.Context, tenantID int64, email, name, role, password string) (int64, error)
}

// Auditor records changes; *shared.AuditLogger satisfies it.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user administration within a tenant.
type Service struct {
	repo    RepositoryPort
	creator Creator
	audit   Auditor
	logger  *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, creator Creator, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, creator: creator, audit: audit, logger: logger}
}

// ListUsers returns every user of the tenant.
func (s *Service) ListUsers(ctx context.Context, tenantID int64) ([]User, error) {
	out, err := s.repo.ListUsers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// CreateUser provisions an account in the actor's tenant.
func (s *Service) CreateUser(ctx context.Context, tenantID, actorID int64, in CreateInput) (*User, error) {
	id, err := s.creator.CreateUser(ctx, tenantID, in.Email, in.Name, in.Role, in.Password)
	if err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, actorID, "create", id, map[string]any{"role": in.Role})
	return s.repo.GetUser(ctx, tenantID, id)
}

// SetActive enables or disables an account. Admins cannot lock themselves out.
func (s *Service) SetActive(ctx context.Context, tenantID, actorID, id int64, active bool) (*User, error) {
	if id == actorID && !active {
		return nil, fmt.Errorf("%w: cannot deactivate your own account", httpx.ErrValidation)
	}
	u, err := s.repo.SetActive(ctx, tenantID, id, active)
	if err != nil {
		return nil, err
	}
	action := "deactivate"
	if active {
		action = "activate"
	}
	s.record(ctx, tenantID, actorID, action, id, nil)
	return u, nil
}

func (s *Service) record(ctx context.Context, tenantID, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit user", slog.String("action", action), slog.Int64("id", id), slog.Any("error", err))
	}
}
