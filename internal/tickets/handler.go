package tickets

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

// Handler manages helpdesk endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers ticket routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTicketsView, shared.PermTicketsEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTicketsEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type ticketRequest struct {
	Subject     string `json:"subject" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Assignee    *int64 `json:"assignee" validate:"omitnil,gt=0"`
}

func (req ticketRequest) input() Input {
	return Input{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		Status:      Status(req.Status),
		Assignee:    req.Assignee,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ticketRequest, bool) {
	var req ticketRequest
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
	t, err := h.service.Create(r.Context(), principal.TenantID, principal.UserID, req.input())
	if err != nil {
		h.fail(w, "create ticket", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	out, meta, err := h.service.List(r.Context(), ListFilter{
		TenantID: principal.TenantID,
		Status:   Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		h.fail(w, "list tickets", err)
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
	t, err := h.service.Get(r.Context(), principal.TenantID, id)
	if err != nil {
		h.fail(w, "get ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
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
	t, err := h.service.Update(r.Context(), principal.TenantID, principal.UserID, id, req.input())
	if err != nil {
		h.fail(w, "update ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), principal.TenantID, principal.UserID, id); err != nil {
		h.fail(w, "delete ticket", err)
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
