package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	pkgauth "github.com/prepjourney/prepjourney-backend/pkg/auth"
	"github.com/prepjourney/prepjourney-backend/pkg/config"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "prepjourney",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config, opts ...func(*Params)) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	params := Params{
		Config: cfg,
		Logger: logg,
		DB:     stubPinger{},
		Redis:  (*redis.Client)(nil),
	}
	for _, opt := range opts {
		opt(&params)
	}
	return NewRouter(params)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.AdminRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "ops@prepjourney.app",
		Role:    role,
		JTI:     uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveAlwaysUp(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
	if env := resp.Header().Get("X-PrepJourney-Env"); env != "test" {
		t.Fatalf("expected env header test got %q", env)
	}
}

func TestPublicPing(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"public"`) {
		t.Fatalf("expected public scope in body got %s", resp.Body.String())
	}
}

func TestMetricsEndpointMountedOnlyWithGatherer(t *testing.T) {
	plain := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	plain.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without gatherer got %d", resp.Code)
	}

	instrumented := newTestRouter(testConfig(), func(p *Params) {
		p.Gatherer = prometheus.NewRegistry()
	})
	resp = httptest.NewRecorder()
	instrumented.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with gatherer got %d", resp.Code)
	}
}

func TestAdminGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAdminGroupRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", resp.Code)
	}
}

func TestAdminGroupAcceptsMintedToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	for _, role := range []enums.AdminRole{enums.AdminRoleAdmin, enums.AdminRoleAnalyst} {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/ping", nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s ping got %d", role, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "admin_id") {
			t.Fatalf("expected admin_id in body got %s", resp.Body.String())
		}
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/nope", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route got %d", resp.Code)
	}
}
