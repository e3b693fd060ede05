package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	middleware   Middleware
	secureCookie bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, middleware Middleware, secureCookie bool) *Handler {
	return &Handler{logger: logger, service: service, middleware: middleware, secureCookie: secureCookie}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.Authenticate)
		r.Use(h.middleware.CSRF)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := shared.ValidateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), "email or password is invalid")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.middleware.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   cookieExpiry(result.ExpiresAt),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	h.logger.Info("login", slog.Int64("user_id", result.User.ID), slog.Int64("tenant_id", result.User.TenantID))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if err := h.service.Logout(r.Context(), principal); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user": UserView{
			ID:          principal.UserID,
			TenantID:    principal.TenantID,
			Email:       principal.Email,
			Role:        principal.Role,
			Permissions: principal.Permissions,
		},
		"expires_at": principal.ExpiresAt,
		"csrf_token": h.service.CSRFToken(principal),
	})
}
