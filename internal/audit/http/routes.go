package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the audit timeline and CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export rate limit exceeded")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAuditView))
		r.Get("/", h.handleTimeline)
		r.With(limiter).Get("/export.csv", h.handleExport)
	})
}

// rateLimitKey limits exports per user, falling back to the client IP.
func rateLimitKey(r *http.Request) (string, error) {
	if p := shared.PrincipalFromContext(r.Context()); p != nil && p.UserID > 0 {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
