package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepjourney/prepjourney-backend/pkg/auth"
	"github.com/prepjourney/prepjourney-backend/pkg/config"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "prepjourney", ExpirationMinutes: 10}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	var called bool
	handler := Auth(testJWTConfig(), nil)(okHandler(&called))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if called {
		t.Fatalf("handler should not run without credentials")
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	var called bool
	handler := Auth(testJWTConfig(), nil)(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsAdminContext(t *testing.T) {
	cfg := testJWTConfig()
	adminID := uuid.New()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		AdminID: adminID,
		Email:   "ops@prepjourney.app",
		Role:    enums.AdminRoleAdmin,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	var gotAdminID string
	var gotRole enums.AdminRole
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdminID = AdminIDFromContext(r.Context())
		gotRole = AdminRoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotAdminID != adminID.String() {
		t.Fatalf("admin id = %q, want %q", gotAdminID, adminID)
	}
	if gotRole != enums.AdminRoleAdmin {
		t.Fatalf("role = %q", gotRole)
	}
}

func TestRequireWriteBlocksAnalysts(t *testing.T) {
	var called bool
	handler := RequireWrite(nil)(okHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithAdmin(req.Context(), uuid.NewString(), enums.AdminRoleAnalyst))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if called {
		t.Fatalf("handler should not run for analyst writes")
	}

	admin := httptest.NewRequest(http.MethodPost, "/", nil)
	admin = admin.WithContext(WithAdmin(admin.Context(), uuid.NewString(), enums.AdminRoleAdmin))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVisitorContextSeedsUserID(t *testing.T) {
	var got string
	handler := VisitorContext(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(VisitorIDHeader, "anon-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "anon-123" {
		t.Fatalf("user id = %q, want anon-123", got)
	}
}
