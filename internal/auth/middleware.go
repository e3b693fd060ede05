package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Middleware authenticates requests carrying an access token.
type Middleware struct {
	Service    *Service
	CookieName string
	Logger     *slog.Logger
}

// extractToken prefers the Authorization header over the cookie.
func (m Middleware) extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), false
	}
	if m.CookieName != "" {
		if cookie, err := r.Cookie(m.CookieName); err == nil && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

// Authenticate rejects requests without a valid, unrevoked token and stores
// the principal on the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, viaCookie := m.extractToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), "missing access token")
			return
		}
		principal, err := m.Service.Verify(r.Context(), token)
		if err != nil {
			if !IsTokenError(err) && m.Logger != nil {
				m.Logger.Error("verify token", slog.Any("error", err))
			}
			if IsTokenError(err) {
				httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), err.Error())
				return
			}
			httpx.RespondError(w, err)
			return
		}
		principal.ViaCookie = viaCookie
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// CSRF requires a matching X-CSRF-Token header on unsafe requests that
// authenticated with the cookie. Bearer clients are exempt.
func (m Middleware) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := shared.PrincipalFromContext(r.Context())
		if principal == nil || !principal.ViaCookie || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if err := m.Service.VerifyCSRF(principal, r.Header.Get(shared.CSRFHeader)); err != nil {
			if m.Logger != nil {
				m.Logger.Warn("csrf rejected", slog.Int64("user_id", principal.UserID), slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
