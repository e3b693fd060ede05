package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Handler exposes the role catalog.
type Handler struct {
	service *Service
	rbac    Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(service *Service, rbac Middleware) *Handler {
	return &Handler{service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermUsersView)).Get("/", h.listRoles)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"data": h.service.ListRoles()})
}
