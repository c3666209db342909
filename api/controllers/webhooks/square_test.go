package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepjourney/prepjourney-backend/internal/conversions"
)

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildSquareEvent(t, "payment.created")
	header := buildSquareSignature(payload, "secret")
	service := &fakeSquareWebhookService{}
	guard := newTestGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/v1/webhooks/square", bytes.NewReader(payload))
	req2.Header.Set("Square-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildSquareEvent(t, "payment.updated")
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, newTestGuard(t), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", "invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestSquareWebhook_HandlerErrorAllowsRetry(t *testing.T) {
	payload := buildSquareEvent(t, "payment.created")
	header := buildSquareSignature(payload, "secret")
	service := &fakeSquareWebhookService{err: errors.New("db down")}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, newTestGuard(t), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected failure status, got 200")
	}

	service.err = nil
	retry := httptest.NewRequest(http.MethodPost, "/v1/webhooks/square", bytes.NewReader(payload))
	retry.Header.Set("Square-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, retry)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected 2 handler invocations, got %d", service.calls)
	}
}

func newTestGuard(t *testing.T) *conversions.Guard {
	t.Helper()
	guard, err := conversions.NewGuard(newInMemoryStore(), time.Minute)
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildSquareEvent(t *testing.T, eventType string) []byte {
	event := &conversions.SquareWebhookEvent{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: conversions.SquareWebhookData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
			Object: conversions.SquareWebhookObject{
				Payment: &conversions.SquarePayment{
					ID:          "pay_" + uuid.NewString(),
					Status:      "COMPLETED",
					ReferenceID: "user-1",
					CreatedAt:   time.Now().UTC().Format(time.RFC3339),
					AmountMoney: &conversions.SquareMoney{Amount: 4900, Currency: "USD"},
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func buildSquareSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakeSquareWebhookService struct {
	calls int
	err   error
}

func (f *fakeSquareWebhookService) HandleEvent(ctx context.Context, event *conversions.SquareWebhookEvent) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("pj:idemp:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
