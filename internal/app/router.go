package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/backoffice/backoffice/internal/audit/http"
	"github.com/backoffice/backoffice/internal/auth"
	"github.com/backoffice/backoffice/internal/candidates"
	"github.com/backoffice/backoffice/internal/cashflow"
	"github.com/backoffice/backoffice/internal/observability"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/sales"
	"github.com/backoffice/backoffice/internal/tickets"
	"github.com/backoffice/backoffice/internal/users"
	"github.com/backoffice/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Metrics        *observability.Metrics
	AuthMiddleware auth.Middleware

	AuthHandler       *auth.Handler
	RolesHandler      *rbac.Handler
	UsersHandler      *users.Handler
	AuditHandler      *audithttp.Handler
	CashflowHandler   *cashflow.Handler
	SalesHandler      *sales.Handler
	CandidatesHandler *candidates.Handler
	TicketsHandler    *tickets.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		r.Use(params.AuthMiddleware.CSRF)

		if params.RolesHandler != nil {
			r.Route("/admin/roles", params.RolesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/admin/users", params.UsersHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/admin/audit", params.AuditHandler.MountRoutes)
		}
		if params.CashflowHandler != nil {
			r.Route("/finance/cashflow", params.CashflowHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/finance/sales", params.SalesHandler.MountRoutes)
		}
		if params.CandidatesHandler != nil {
			r.Route("/recruitment/candidates", params.CandidatesHandler.MountRoutes)
		}
		if params.TicketsHandler != nil {
			r.Route("/hr/tickets", params.TicketsHandler.MountRoutes)
		}
	})

	return r
}
