package tickets

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

type memoryRepo struct {
	nextID int64
	rows   map[int64]Ticket
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]Ticket)}
}

func (m *memoryRepo) Create(_ context.Context, t Ticket) (*Ticket, error) {
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.rows[t.ID] = t
	return &t, nil
}

func (m *memoryRepo) Get(_ context.Context, tenantID, id int64) (*Ticket, error) {
	t, ok := m.rows[id]
	if !ok || t.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Ticket, int, error) {
	var out []Ticket
	for _, t := range m.rows {
		if t.TenantID == f.TenantID && (f.Status == "" || t.Status == f.Status) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Update(_ context.Context, t Ticket) (*Ticket, error) {
	existing, ok := m.rows[t.ID]
	if !ok || existing.TenantID != t.TenantID || existing.Status == StatusClosed {
		return nil, shared.ErrNotFound
	}
	t.RaisedBy = existing.RaisedBy
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now()
	m.rows[t.ID] = t
	return &t, nil
}

func (m *memoryRepo) Delete(_ context.Context, tenantID, id int64) error {
	t, ok := m.rows[id]
	if !ok || t.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func newTestService() *Service {
	return NewService(newMemoryRepo(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService()
	ticket, err := svc.Create(context.Background(), 1, 12, Input{Subject: " Payslip missing "})
	require.NoError(t, err)
	assert.Equal(t, "Payslip missing", ticket.Subject)
	assert.Equal(t, PriorityMedium, ticket.Priority)
	assert.Equal(t, StatusOpen, ticket.Status)
	assert.Equal(t, int64(12), ticket.RaisedBy)

	_, err = svc.Create(context.Background(), 1, 12, Input{Subject: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.Create(context.Background(), 1, 12, Input{Subject: "  "})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestClosedTicketIsReadOnly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	ticket, err := svc.Create(ctx, 1, 12, Input{Subject: "Laptop"})
	require.NoError(t, err)

	assignee := int64(7)
	ticket, err = svc.Update(ctx, 1, 7, ticket.ID, Input{Subject: "Laptop", Status: StatusInProgress, Assignee: &assignee})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, ticket.Status)
	assert.Equal(t, int64(12), ticket.RaisedBy, "raised_by never changes")

	_, err = svc.Update(ctx, 1, 7, ticket.ID, Input{Subject: "Laptop", Status: StatusClosed})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, 7, ticket.ID, Input{Subject: "Laptop", Status: StatusOpen})
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestTicketEndpoints(t *testing.T) {
	svc := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService()})
	principal := &shared.Principal{UserID: 12, TenantID: 1, Role: rbac.RoleHR, Permissions: shared.HRScopes()}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	r.Route("/hr/tickets", h.MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rr
	}

	rr := do(http.MethodPost, "/hr/tickets/", `{"subject":"Leave balance","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"raised_by":12`)

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/hr/tickets/", `{"subject":"x","raised_by":99}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/hr/tickets/", `{"subject":"x","status":"pending"}`).Code)

	assert.Equal(t, http.StatusOK, do(http.MethodPut, "/hr/tickets/1", `{"subject":"Leave balance","status":"closed"}`).Code)
	assert.Equal(t, http.StatusConflict, do(http.MethodPut, "/hr/tickets/1", `{"subject":"Reopen"}`).Code)

	rr = do(http.MethodGet, "/hr/tickets/?status=closed", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Leave balance")
	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/hr/tickets/?status=lost", "").Code)

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/hr/tickets/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/hr/tickets/1", "").Code)
}
