package app_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/backoffice/backoffice/internal/app"
	"github.com/backoffice/backoffice/internal/auth"
	"github.com/backoffice/backoffice/internal/cashflow"
	"github.com/backoffice/backoffice/internal/observability"
	"github.com/backoffice/backoffice/internal/rbac"
	"github.com/backoffice/backoffice/internal/shared"
	"github.com/backoffice/backoffice/jobs"
	_ "github.com/backoffice/backoffice/testing"
)

type userRepo struct {
	users map[string]*auth.User
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (userRepo) CreateUser(context.Context, auth.User) (int64, error) { return 0, nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := userRepo{users: map[string]*auth.User{
		"admin@acme.test":  {ID: 1, TenantID: 1, Email: "admin@acme.test", Role: rbac.RoleAdmin, PasswordHash: string(hash), IsActive: true},
		"viewer@acme.test": {ID: 2, TenantID: 1, Email: "viewer@acme.test", Role: rbac.RoleViewer, PasswordHash: string(hash), IsActive: true},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roles := rbac.NewService()
	authService := auth.NewService(repo,
		auth.NewTokenService("jwt-secret", "backoffice", time.Hour),
		auth.NewDenylist(client),
		roles,
		shared.NewCSRFManager("csrf-secret"))
	authMW := auth.Middleware{Service: authService, CookieName: "token", Logger: logger}
	rbacMW := rbac.Middleware{Service: roles, Logger: logger}

	return app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          &app.Config{AppEnv: "development", RateLimitPerMinute: 1000},
		Metrics:         observability.NewMetrics(),
		AuthMiddleware:  authMW,
		AuthHandler:     auth.NewHandler(logger, authService, authMW, false),
		RolesHandler:    rbac.NewHandler(roles, rbacMW),
		CashflowHandler: cashflow.NewHandler(logger, cashflow.NewService(nil, nil, logger), rbacMW),
		JobHandler:      jobs.NewHandler(nil, logger),
	})
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"`+email+`","password":"correct horse"}`))
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out auth.LoginResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.Token
}

func TestPublicEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `backoffice_http_requests_total{code="200",route="/healthz"} 1`)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestPortalRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/admin/roles/", "/finance/cashflow/entries", "/finance/cashflow/summary"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestPortalRoutesEnforcePermissions(t *testing.T) {
	h := newTestRouter(t)

	viewer := login(t, h, "viewer@acme.test")
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/finance/cashflow/entries", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+viewer)
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/roles/", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin := login(t, h, "admin@acme.test")
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/roles/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recruiter"`)
}
