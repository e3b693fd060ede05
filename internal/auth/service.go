package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenService
	denylist *Denylist
	roles    *rbac.Service
	csrf     *shared.CSRFManager
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenService, denylist *Denylist, roles *rbac.Service, csrf *shared.CSRFManager) *Service {
	return &Service{repo: repo, tokens: tokens, denylist: denylist, roles: roles, csrf: csrf}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the user and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	perms := s.roles.EffectivePermissions(user.Role)
	token, claims, err := s.tokens.Issue(*user, perms)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		CSRFToken: s.csrf.TokenFor(claims.ID),
		User: UserView{
			ID:          user.ID,
			TenantID:    user.TenantID,
			Email:       user.Email,
			Role:        user.Role,
			Permissions: perms,
		},
	}, nil
}

// Verify parses the token and rejects revoked ones.
func (s *Service) Verify(ctx context.Context, token string) (*shared.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return &shared.Principal{
		UserID:      claims.UserID,
		TenantID:    claims.TenantID,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the principal's token until it expires.
func (s *Service) Logout(ctx context.Context, principal *shared.Principal) error {
	if principal == nil {
		return shared.ErrUnauthorized
	}
	return s.denylist.Revoke(ctx, principal.TokenID, principal.ExpiresAt)
}

// CSRFToken derives the CSRF token bound to the principal's login.
func (s *Service) CSRFToken(principal *shared.Principal) string {
	if principal == nil {
		return ""
	}
	return s.csrf.TokenFor(principal.TokenID)
}

// VerifyCSRF checks the CSRF token for a cookie authenticated principal.
func (s *Service) VerifyCSRF(principal *shared.Principal, token string) error {
	if principal == nil {
		return shared.ErrUnauthorized
	}
	return s.csrf.VerifyToken(principal.TokenID, token)
}

// CreateUser provisions a user with a bcrypt hashed password.
func (s *Service) CreateUser(ctx context.Context, tenantID int64, email, name, role, password string) (int64, error) {
	email = strings.TrimSpace(email)
	if tenantID <= 0 || email == "" {
		return 0, fmt.Errorf("%w: tenant and email are required", httpx.ErrValidation)
	}
	if !s.roles.ValidRole(role) {
		return 0, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateUser(ctx, User{
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         strings.ToLower(role),
		IsActive:     true,
	})
}

// MinPasswordLength is the shortest password accepted when provisioning users.
const MinPasswordLength = 8

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", httpx.ErrValidation, MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsTokenError reports whether err came from token validation.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrRevokedToken) ||
		errors.Is(err, ErrMissingTenant) ||
		errors.Is(err, ErrTokenNotActive)
}

func cookieExpiry(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Seconds())
	if secs < 0 {
		return -1
	}
	return secs
}
