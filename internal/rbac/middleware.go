package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny ensures the current principal has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard("rbac require any", func(granted []string) bool {
		return hasAnyPermission(granted, normalized)
	})
}

// RequireAll ensures the current principal has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard("rbac require all", func(granted []string) bool {
		return hasAllPermissions(granted, normalized)
	})
}

func (m Middleware) guard(op string, allowed func([]string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if m.Service != nil && m.Service.IsSuperUser(principal.Role) {
				next.ServeHTTP(w, r)
				return
			}
			if allowed(principal.Permissions) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn(op+" denied",
					slog.Int64("user_id", principal.UserID),
					slog.Int64("tenant_id", principal.TenantID),
					slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

func permissionSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}
