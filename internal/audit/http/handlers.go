package audithttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/backoffice/backoffice/internal/audit"
	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

const maxRange = 90 * 24 * time.Hour

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	ExportCSV(ctx context.Context, filters audit.TimelineFilters) ([]byte, error)
}

// Handler serves the audit timeline of the caller's tenant.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler creates an audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	data, err := h.service.ExportCSV(r.Context(), filters)
	if err != nil {
		h.fail(w, "audit export", err)
		return
	}
	name := fmt.Sprintf("audit-%s.csv", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseFilters reads from/to (YYYY-MM-DD, to inclusive), actor, entity,
// action and paging. The window defaults to the last 7 days and may span at
// most 90 days.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	principal := shared.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		TenantID: principal.TenantID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
	}
	filters.Page, filters.PageSize = shared.PageFromRequest(r)

	today := shared.Today(h.now())
	to := today.AddDate(0, 0, 1)
	from := today.AddDate(0, 0, -6)
	toParam, err := httpx.QueryDate(r, "to")
	if err != nil {
		return filters, err
	}
	if toParam != nil {
		to = toParam.AddDate(0, 0, 1)
	}
	fromParam, err := httpx.QueryDate(r, "from")
	if err != nil {
		return filters, err
	}
	if fromParam != nil {
		from = *fromParam
	}
	if !to.After(from) {
		return filters, fmt.Errorf("%w: to must not precede from", httpx.ErrValidation)
	}
	if to.Sub(from) > maxRange {
		return filters, fmt.Errorf("%w: range may not exceed 90 days", httpx.ErrValidation)
	}
	filters.From, filters.To = from, to

	if raw := strings.TrimSpace(q.Get("actor")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filters, fmt.Errorf("%w: actor must be a positive id", httpx.ErrValidation)
		}
		filters.ActorID = id
	}
	return filters, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
