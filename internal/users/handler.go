package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/", h.createUser)
		r.Patch("/{id}", h.setActive)
	})
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"max=200"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	users, err := h.service.ListUsers(r.Context(), principal.TenantID)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": users})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := shared.ValidateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	u, err := h.service.CreateUser(r.Context(), principal.TenantID, principal.UserID, CreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := shared.ValidateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	u, err := h.service.SetActive(r.Context(), principal.TenantID, principal.UserID, id, *req.IsActive)
	if err != nil {
		h.fail(w, "set user active", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
