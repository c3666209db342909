package conversions

import (
	"context"
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	dbpkg "github.com/prepjourney/prepjourney-backend/pkg/db"
	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
	"github.com/prepjourney/prepjourney-backend/pkg/enums"
	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"
	"github.com/prepjourney/prepjourney-backend/pkg/logger"
	"github.com/prepjourney/prepjourney-backend/pkg/outbox"
)

const paymentStatusCompleted = "COMPLETED"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// Service ingests Square payment webhooks into purchase_records. Replayed
// deliveries and duplicate payments are absorbed silently; a payment is
// recorded at most once.
type Service struct {
	repo   Repository
	db     txRunner
	events eventEmitter
	square paymentFetcher
	logg   *logger.Logger
}

// NewService wires the conversion ingestion service. The Square client is
// optional; without it, events that omit the payment object are skipped.
func NewService(repo Repository, db txRunner, events eventEmitter, square paymentFetcher, logg *logger.Logger) *Service {
	return &Service{repo: repo, db: db, events: events, square: square, logg: logg}
}

// HandleEvent processes one Square payment event. Non-payment events and
// incomplete payments are ignored without error.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
	default:
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil {
		fetched, err := s.fetchPayment(ctx, event.Data.ID)
		if err != nil {
			return err
		}
		if fetched == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		payment = fetched
	}

	if !strings.EqualFold(payment.Status, paymentStatusCompleted) {
		return nil
	}
	if payment.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
	}

	userID := strings.TrimSpace(payment.ReferenceID)
	if userID == "" {
		// Payments made outside the experiment funnel carry no user reference;
		// nothing to attribute.
		s.logg.Info(s.logg.WithField(ctx, "payment_id", payment.ID), "payment without user reference skipped")
		return nil
	}
	if payment.AmountMoney == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount missing")
	}

	record := &models.PurchaseRecord{
		UserID:          userID,
		SquarePaymentID: payment.ID,
		AmountCents:     payment.AmountMoney.Amount,
		Currency:        normalizeCurrency(payment.AmountMoney.Currency),
		OccurredAt:      occurredAt(payment.CreatedAt),
	}
	if company := strings.TrimSpace(payment.Metadata["company"]); company != "" {
		record.Company = &company
	}
	if role := strings.TrimSpace(payment.Metadata["role"]); role != "" {
		record.Role = &role
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindBySquarePaymentID(ctx, payment.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		if err := repo.Create(ctx, record); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return nil
			}
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseRecorded,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   record.ID,
			Version:       1,
			Data: outbox.PurchaseRecordedV1{
				UserID:          record.UserID,
				SquarePaymentID: record.SquarePaymentID,
				AmountCents:     record.AmountCents,
				Currency:        record.Currency,
				OccurredAt:      record.OccurredAt,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording purchase")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID,
		"payment_id": payment.ID,
		"amount":     record.AmountCents,
	})
	s.logg.Info(logCtx, "purchase recorded")
	return nil
}

func (s *Service) fetchPayment(ctx context.Context, paymentID string) (*SquarePayment, error) {
	if s.square == nil || strings.TrimSpace(paymentID) == "" {
		return nil, nil
	}
	payment, err := s.square.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, nil
	}

	converted := &SquarePayment{
		ID:          derefString(payment.GetID()),
		Status:      derefString(payment.GetStatus()),
		ReferenceID: derefString(payment.GetReferenceID()),
		Note:        derefString(payment.GetNote()),
		CreatedAt:   derefString(payment.GetCreatedAt()),
	}
	if money := payment.GetAmountMoney(); money != nil {
		converted.AmountMoney = &SquareMoney{}
		if amount := money.GetAmount(); amount != nil {
			converted.AmountMoney.Amount = *amount
		}
		if currency := money.GetCurrency(); currency != nil {
			converted.AmountMoney.Currency = string(*currency)
		}
	}
	return converted, nil
}

func normalizeCurrency(raw string) string {
	currency := strings.ToLower(strings.TrimSpace(raw))
	if currency == "" {
		return "usd"
	}
	return currency
}

func occurredAt(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
