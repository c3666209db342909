package conversions

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	sq "github.com/square/square-go-sdk"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/outbox"
)

type stubPurchaseRepo struct {
	existing  *models.PurchaseRecord
	createErr error
	created   []*models.PurchaseRecord
}

func (s *stubPurchaseRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPurchaseRepo) Create(ctx context.Context, record *models.PurchaseRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, record)
	return nil
}

func (s *stubPurchaseRepo) FindBySquarePaymentID(ctx context.Context, squarePaymentID string) (*models.PurchaseRecord, error) {
	if s.existing != nil && s.existing.SquarePaymentID == squarePaymentID {
		return s.existing, nil
	}
	return nil, nil
}

func (s *stubPurchaseRepo) ListByUsersInRange(ctx context.Context, userIDs []string, since, until time.Time) ([]models.PurchaseRecord, error) {
	return nil, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubFetcher struct {
	payment *sq.Payment
	err     error
	calls   int
}

func (s *stubFetcher) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	s.calls++
	return s.payment, s.err
}

func newTestService(repo Repository, emitter eventEmitter, fetcher paymentFetcher) *Service {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	return NewService(repo, stubTxRunner{}, emitter, fetcher, logg)
}

func completedEvent(paymentID, userID string) *SquareWebhookEvent {
	return &SquareWebhookEvent{
		EventID: "evt-1",
		Type:    "payment.created",
		Data: SquareWebhookData{
			Type: "payment",
			ID:   paymentID,
			Object: SquareWebhookObject{
				Payment: &SquarePayment{
					ID:          paymentID,
					Status:      "COMPLETED",
					ReferenceID: userID,
					CreatedAt:   "2026-02-01T10:30:00Z",
					AmountMoney: &SquareMoney{Amount: 4900, Currency: "USD"},
					Metadata:    map[string]string{"company": "Acme", "role": "backend"},
				},
			},
		},
	}
}

func TestHandleEventRecordsCompletedPayment(t *testing.T) {
	repo := &stubPurchaseRepo{}
	emitter := &stubEmitter{}
	svc := newTestService(repo, emitter, nil)

	if err := svc.HandleEvent(context.Background(), completedEvent("pay-1", "user-42")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 record, got %d", len(repo.created))
	}
	record := repo.created[0]
	if record.UserID != "user-42" || record.SquarePaymentID != "pay-1" {
		t.Fatalf("unexpected record identity: %+v", record)
	}
	if record.AmountCents != 4900 || record.Currency != "usd" {
		t.Fatalf("unexpected amount: %d %s", record.AmountCents, record.Currency)
	}
	want := time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC)
	if !record.OccurredAt.Equal(want) {
		t.Fatalf("occurred_at = %v, want %v", record.OccurredAt, want)
	}
	if record.Company == nil || *record.Company != "Acme" {
		t.Fatalf("company not captured: %+v", record.Company)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventPurchaseRecorded {
		t.Fatalf("unexpected event type %q", emitter.events[0].EventType)
	}
	payload, ok := emitter.events[0].Data.(outbox.PurchaseRecordedV1)
	if !ok {
		t.Fatalf("unexpected payload type %T", emitter.events[0].Data)
	}
	if payload.SquarePaymentID != "pay-1" || payload.AmountCents != 4900 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandleEventIgnoresNonPaymentTypes(t *testing.T) {
	repo := &stubPurchaseRepo{}
	emitter := &stubEmitter{}
	svc := newTestService(repo, emitter, nil)

	event := completedEvent("pay-2", "user-1")
	event.Type = "refund.created"
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(repo.created) != 0 || len(emitter.events) != 0 {
		t.Fatalf("refund event should not be recorded")
	}
}

func TestHandleEventIgnoresIncompletePayments(t *testing.T) {
	repo := &stubPurchaseRepo{}
	svc := newTestService(repo, &stubEmitter{}, nil)

	event := completedEvent("pay-3", "user-1")
	event.Data.Object.Payment.Status = "PENDING"
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("pending payment should not be recorded")
	}
}

func TestHandleEventSkipsPaymentsWithoutUserReference(t *testing.T) {
	repo := &stubPurchaseRepo{}
	svc := newTestService(repo, &stubEmitter{}, nil)

	event := completedEvent("pay-4", "")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("unattributed payment should not be recorded")
	}
}

func TestHandleEventDuplicatePaymentIsIdempotent(t *testing.T) {
	repo := &stubPurchaseRepo{
		existing: &models.PurchaseRecord{SquarePaymentID: "pay-5", UserID: "user-1"},
	}
	emitter := &stubEmitter{}
	svc := newTestService(repo, emitter, nil)

	if err := svc.HandleEvent(context.Background(), completedEvent("pay-5", "user-1")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(repo.created) != 0 || len(emitter.events) != 0 {
		t.Fatalf("duplicate payment should be a no-op")
	}
}

func TestHandleEventUniqueViolationIsIdempotent(t *testing.T) {
	repo := &stubPurchaseRepo{createErr: &pgconn.PgError{Code: "23505"}}
	emitter := &stubEmitter{}
	svc := newTestService(repo, emitter, nil)

	if err := svc.HandleEvent(context.Background(), completedEvent("pay-6", "user-1")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("racing duplicate should not emit an event")
	}
}

func TestHandleEventFetchesMissingPaymentObject(t *testing.T) {
	repo := &stubPurchaseRepo{}
	emitter := &stubEmitter{}
	fetcher := &stubFetcher{payment: &sq.Payment{
		ID:          strPtr("pay-7"),
		Status:      strPtr("COMPLETED"),
		ReferenceID: strPtr("user-9"),
		CreatedAt:   strPtr("2026-02-02T08:00:00Z"),
		AmountMoney: &sq.Money{Amount: int64Ptr(9900), Currency: currencyPtr("USD")},
	}}
	svc := newTestService(repo, emitter, fetcher)

	event := completedEvent("pay-7", "user-9")
	event.Data.Object.Payment = nil
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 lookup, got %d", fetcher.calls)
	}
	if len(repo.created) != 1 || repo.created[0].AmountCents != 9900 {
		t.Fatalf("fetched payment not recorded: %+v", repo.created)
	}
}

func TestHandleEventMissingPaymentWithoutFetcher(t *testing.T) {
	svc := newTestService(&stubPurchaseRepo{}, &stubEmitter{}, nil)

	event := completedEvent("pay-8", "user-1")
	event.Data.Object.Payment = nil
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected validation error for missing payment payload")
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func currencyPtr(code string) *sq.Currency {
	c := sq.Currency(code)
	return &c
}
