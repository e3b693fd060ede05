package users

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice/backoffice/internal/platform/httpx"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
)

type memoryRepo struct {
	users map[int64]*User
}

func (m *memoryRepo) ListUsers(_ context.Context, tenantID int64) ([]User, error) {
	var out []User
	for id := int64(1); id <= int64(len(m.users)); id++ {
		if u, ok := m.users[id]; ok && u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetUser(_ context.Context, tenantID, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	found := *u
	return &found, nil
}

func (m *memoryRepo) SetActive(ctx context.Context, tenantID, id int64, active bool) (*User, error) {
	if _, err := m.GetUser(ctx, tenantID, id); err != nil {
		return nil, err
	}
	m.users[id].IsActive = active
	return m.GetUser(ctx, tenantID, id)
}

// CreateUser stands in for auth.Service.
func (m *memoryRepo) CreateUser(_ context.Context, tenantID int64, email, name, role, password string) (int64, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			return 0, httpx.ErrDuplicate
		}
	}
	id := int64(len(m.users) + 1)
	m.users[id] = &User{ID: id, TenantID: tenantID, Email: strings.ToLower(email), Name: name, Role: role, IsActive: true}
	return id, nil
}

type auditSpy struct {
	actions []string
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Entity+":"+log.Action)
	return nil
}

func newFixture() (*Service, *memoryRepo, *auditSpy) {
	repo := &memoryRepo{users: map[int64]*User{
		1: {ID: 1, TenantID: 1, Email: "admin@acme.test", Role: rbac.RoleAdmin, IsActive: true},
		2: {ID: 2, TenantID: 2, Email: "other@globex.test", Role: rbac.RoleAdmin, IsActive: true},
	}}
	spy := &auditSpy{}
	return NewService(repo, repo, spy, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, spy
}

func TestListUsersIsTenantScoped(t *testing.T) {
	svc, _, _ := newFixture()
	users, err := svc.ListUsers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@acme.test", users[0].Email)

	users, err = svc.ListUsers(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestSetActive(t *testing.T) {
	svc, _, spy := newFixture()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, 1, 1, CreateInput{Email: "fin@acme.test", Role: rbac.RoleFinance, Password: "longenough"})
	require.NoError(t, err)

	u, err = svc.SetActive(ctx, 1, 1, u.ID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = svc.SetActive(ctx, 1, 1, 1, false)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.SetActive(ctx, 1, 1, 2, false)
	assert.ErrorIs(t, err, shared.ErrNotFound, "users of other tenants are invisible")

	assert.Equal(t, []string{"user:create", "user:deactivate"}, spy.actions)
}

func TestUserEndpoints(t *testing.T) {
	svc, _, _ := newFixture()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService(), Logger: logger})
	principal := &shared.Principal{UserID: 1, TenantID: 1, Role: rbac.RoleAdmin}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	r.Route("/admin/users", h.MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rr
	}

	rr := do(http.MethodPost, "/admin/users/", `{"email":"hr@acme.test","role":"hr","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")

	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/admin/users/", `{"email":"HR@acme.test","role":"hr","password":"longenough"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/admin/users/", `{"email":"nope","role":"hr","password":"longenough"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPatch, "/admin/users/3", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(http.MethodPatch, "/admin/users/3", `{"is_active":false}`).Code)

	rr = do(http.MethodGet, "/admin/users/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"is_active":false`)
}
