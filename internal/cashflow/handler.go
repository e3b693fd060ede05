package cashflow

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/backoffice/backoffice/internal/ledger"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

// Handler manages cash flow endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers cash flow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCashflowView, shared.PermCashflowEdit))
		r.Get("/entries", h.listEntries)
		r.Get("/entries/{id}", h.getEntry)
		r.Get("/summary", h.summary)
		r.Get("/drift", h.drift)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCashflowEdit))
		r.Post("/entries", h.createEntry)
		r.Patch("/entries/{id}", h.updateEntry)
		r.Delete("/entries/{id}", h.deleteEntry)
	})
}

type createEntryRequest struct {
	Date        string      `json:"date" validate:"required,date"`
	Kind        string      `json:"kind" validate:"required,oneof=inflow outflow"`
	Amount      json.Number `json:"amount" validate:"required,money"`
	Category    string      `json:"category" validate:"max=64"`
	Description string      `json:"description" validate:"max=500"`
}

type updateEntryRequest struct {
	Category    *string `json:"category" validate:"omitnil,max=64"`
	Description *string `json:"description" validate:"omitnil,max=500"`
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := shared.ValidateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	date, _ := shared.ParseDate(req.Date)
	amount, _ := decimal.NewFromString(strings.TrimSpace(req.Amount.String()))

	entry, err := h.service.RecordEntry(r.Context(), CreateEntryInput{
		TenantID:       principal.TenantID,
		ActorID:        principal.UserID,
		EntryDate:      date,
		Kind:           ledger.Kind(req.Kind),
		Amount:         amount,
		Category:       req.Category,
		Description:    req.Description,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(shared.IdempotencyHeader)),
	})
	if err != nil {
		h.fail(w, "record cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, perPage := shared.PageFromRequest(r)
	entries, meta, err := h.service.ListEntries(r.Context(), ListFilter{
		TenantID: principal.TenantID,
		From:     from,
		To:       to,
		Kind:     ledger.Kind(strings.TrimSpace(r.URL.Query().Get("kind"))),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		h.fail(w, "list cashflow entries", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": entries, "pagination": meta})
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.GetEntry(r.Context(), principal.TenantID, id)
	if err != nil {
		h.fail(w, "get cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := shared.ValidateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	entry, err := h.service.UpdateEntry(r.Context(), principal.TenantID, principal.UserID, id, UpdateEntryInput{
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, "update cashflow entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteEntry(r.Context(), principal.TenantID, principal.UserID, id); err != nil {
		h.fail(w, "delete cashflow entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	summary, err := h.service.Summary(r.Context(), principal.TenantID)
	if err != nil {
		h.fail(w, "cashflow summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) drift(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	report, err := h.service.ScanDrift(r.Context(), principal.TenantID)
	if err != nil {
		h.fail(w, "cashflow drift", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
