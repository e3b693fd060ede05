package sales

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

// Handler manages sales outstanding endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesView, shared.PermSalesEdit))
		r.Get("/entries", h.listEntries)
		r.Get("/entries/{id}", h.getEntry)
		r.Get("/aging", h.aging)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermSalesEdit))
		r.Post("/entries", h.createEntry)
		r.Post("/entries/{id}/pay", h.payEntry)
		r.Delete("/entries/{id}", h.deleteEntry)
	})
}

type createEntryRequest struct {
	InvoiceNumber string      `json:"invoice_number" validate:"required,max=64"`
	CustomerName  string      `json:"customer_name" validate:"max=200"`
	Amount        json.Number `json:"amount" validate:"required,money"`
	SaleDate      string      `json:"sale_date" validate:"required,date"`
	PaymentStatus string      `json:"payment_status" validate:"omitempty,oneof=pending paid"`
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
	saleDate, _ := shared.ParseDate(req.SaleDate)
	amount, _ := decimal.NewFromString(strings.TrimSpace(req.Amount.String()))

	entry, err := h.service.RecordEntry(r.Context(), CreateEntryInput{
		TenantID:      principal.TenantID,
		ActorID:       principal.UserID,
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		Amount:        amount,
		SaleDate:      saleDate,
		PaymentStatus: ledger.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		h.fail(w, "record sales entry", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	entries, meta, err := h.service.ListEntries(r.Context(), ListFilter{
		TenantID: principal.TenantID,
		Status:   ledger.PaymentStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		h.fail(w, "list sales entries", err)
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
		h.fail(w, "get sales entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) payEntry(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, err := httpx.ParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.MarkPaid(r.Context(), principal.TenantID, principal.UserID, id)
	if err != nil {
		h.fail(w, "pay sales entry", err)
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
		h.fail(w, "delete sales entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var report AgingReport
	if asOf != nil {
		report, err = h.service.AgingReport(r.Context(), principal.TenantID, *asOf)
	} else {
		report, err = h.service.AgingReport(r.Context(), principal.TenantID, h.service.now())
	}
	if err != nil {
		h.fail(w, "sales aging", err)
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
