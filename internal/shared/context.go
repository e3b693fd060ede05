package shared

import (
	"context"
	"strings"
	"time"
)

// Principal is the authenticated actor resolved from a token.
type Principal struct {
	UserID      int64
	TenantID    int64
	Email       string
	Role        string
	Permissions []string
	TokenID     string
	ExpiresAt   time.Time
	// ViaCookie is set when the token came from the auth cookie rather than
	// an Authorization header; such requests must carry a CSRF token.
	ViaCookie bool
}

// HasPermission reports whether the principal was granted perm.
func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	perm = strings.ToLower(strings.TrimSpace(perm))
	for _, granted := range p.Permissions {
		if strings.ToLower(granted) == perm {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
