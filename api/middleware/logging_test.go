package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/rs/zerolog"
)

func TestLoggingPassesResponseThrough(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status not forwarded, got %d", rec.Code)
	}
	if rec.Body.String() != "short and stout" {
		t.Fatalf("body not forwarded, got %q", rec.Body.String())
	}
}

func TestStatusRecorderCapturesWrites(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}

	n, err := rec.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("write: %d, %v", n, err)
	}
	if rec.status != http.StatusOK {
		t.Fatalf("implicit status should default to 200, got %d", rec.status)
	}
	if rec.bytes != 5 {
		t.Fatalf("expected 5 bytes recorded, got %d", rec.bytes)
	}

	explicit := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	explicit.WriteHeader(http.StatusConflict)
	if explicit.status != http.StatusConflict {
		t.Fatalf("explicit status not captured, got %d", explicit.status)
	}
}

func TestLoggingWithoutLoggerStillServes(t *testing.T) {
	called := false
	handler := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("handler not invoked when logger is nil")
	}
}
