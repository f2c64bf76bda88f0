package app

import (
	"context"
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

	"github.com/leaddesk/leaddesk/internal/observability"
	"github.com/leaddesk/leaddesk/internal/rbac"
	"github.com/leaddesk/leaddesk/internal/shared"
)

type routerFixture struct {
	handler  http.Handler
	sessions *shared.SessionManager
}

func newRouterFixture(t *testing.T, cfg *Config) routerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, time.Hour)
	svc := rbac.NewService()
	mw := rbac.Middleware{Service: svc, Logger: logger}
	return routerFixture{
		sessions: sessions,
		handler: NewRouter(RouterParams{
			Logger:             logger,
			Config:             cfg,
			SessionManager:     sessions,
			RBACMiddleware:     mw,
			PermissionsHandler: rbac.NewPermissionsHandler(logger, svc, mw),
			Metrics:            observability.NewMetrics(),
		}),
	}
}

func (f routerFixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterProtectsAPI(t *testing.T) {
	f := newRouterFixture(t, &Config{AppEnv: "test"})

	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = f.do(http.MethodGet, "/api/permissions/mine", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/permissions/mine", "stale-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	sess, err := f.sessions.Create(context.Background(), shared.Profile{UserID: 7, Designation: shared.DesignationBDE})
	require.NoError(t, err)
	rec = f.do(http.MethodGet, "/api/permissions/mine", sess.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), shared.PermLeadVisit)
}

func TestRouterNotFoundIsProblemJSON(t *testing.T) {
	f := newRouterFixture(t, &Config{AppEnv: "test"})
	rec := f.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouterExposesMetrics(t *testing.T) {
	f := newRouterFixture(t, &Config{AppEnv: "test"})
	f.do(http.MethodGet, "/healthz", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "leaddesk_http_requests_total"))
}

func TestRouterRateLimits(t *testing.T) {
	f := newRouterFixture(t, &Config{AppEnv: "test", RateLimitPerMinute: 2})
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)

	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too Many Requests")
}
