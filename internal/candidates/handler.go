package candidates

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

// Handler manages recruitment endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers candidate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCandidatesView, shared.PermCandidatesEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCandidatesEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type candidateRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=40"`
	Position string `json:"position" validate:"max=120"`
	Stage    string `json:"stage" validate:"omitempty,oneof=applied screening interview offer hired rejected"`
	Notes    string `json:"notes" validate:"max=2000"`
}

func (req candidateRequest) input() Input {
	return Input{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Position: req.Position,
		Stage:    Stage(req.Stage),
		Notes:    req.Notes,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (candidateRequest, bool) {
	var req candidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return req, false
	}
	if fields := shared.ValidateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return req, false
	}
	return req, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.service.Create(r.Context(), principal.TenantID, principal.UserID, req.input())
	if err != nil {
		h.fail(w, "create candidate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	out, meta, err := h.service.List(r.Context(), ListFilter{
		TenantID: principal.TenantID,
		Stage:    Stage(strings.TrimSpace(r.URL.Query().Get("stage"))),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		h.fail(w, "list candidates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), principal.TenantID, id)
	if err != nil {
		h.fail(w, "get candidate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.service.Update(r.Context(), principal.TenantID, principal.UserID, id, req.input())
	if err != nil {
		h.fail(w, "update candidate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), principal.TenantID, principal.UserID, id); err != nil {
		h.fail(w, "delete candidate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
