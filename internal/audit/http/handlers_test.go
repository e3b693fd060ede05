package audithttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice/backoffice/internal/audit"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

type stubService struct {
	last audit.TimelineFilters
}

func (s *stubService) Timeline(_ context.Context, f audit.TimelineFilters) (audit.Result, error) {
	s.last = f
	return audit.Result{Rows: []audit.TimelineRow{{ID: 1, Action: "create", Entity: "ticket", EntityID: "1"}}, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}, nil
}

func (s *stubService) ExportCSV(_ context.Context, f audit.TimelineFilters) ([]byte, error) {
	s.last = f
	return []byte("id\n1\n"), nil
}

func newTestRouter(svc *stubService, principal *shared.Principal) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService(), Logger: logger})
	h.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	r.Route("/admin/audit", h.MountRoutes)
	return r
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc, &shared.Principal{UserID: 1, TenantID: 4, Role: rbac.RoleAdmin})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/audit/?entity=ticket&actor=9", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Rows, 1)
	assert.Equal(t, int64(4), svc.last.TenantID)
	assert.Equal(t, int64(9), svc.last.ActorID)
	assert.Equal(t, "ticket", svc.last.Entity)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), svc.last.From)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), svc.last.To)
}

func TestTimelineValidatesRange(t *testing.T) {
	r := newTestRouter(&stubService{}, &shared.Principal{UserID: 1, TenantID: 4, Role: rbac.RoleAdmin})

	for _, q := range []string{
		"?from=2024-03-10&to=2024-03-01",
		"?from=2023-01-01&to=2024-03-01",
		"?from=yesterday",
		"?actor=-1",
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/audit/"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestTimelineRequiresAuditPermission(t *testing.T) {
	r := newTestRouter(&stubService{}, &shared.Principal{UserID: 2, TenantID: 4, Role: rbac.RoleViewer, Permissions: []string{shared.PermCashflowView}})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/audit/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestExportCSV(t *testing.T) {
	r := newTestRouter(&stubService{}, &shared.Principal{UserID: 1, TenantID: 4, Role: rbac.RoleAdmin})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/audit/export.csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "audit-20240315-120000.csv")
	assert.Equal(t, "id\n1\n", rr.Body.String())
}
