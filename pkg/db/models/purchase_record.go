package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseRecord captures a completed payment, joinable to variant
// assignments by user for conversion metrics. Rows are ingested from the
// payment provider's webhooks and never mutated afterwards.
type PurchaseRecord struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          string    `gorm:"column:user_id;not null;index"`
	SquarePaymentID string    `gorm:"column:square_payment_id;not null;unique"`
	AmountCents     int64     `gorm:"column:amount_cents;not null"`
	Currency        string    `gorm:"column:currency;not null;default:'usd'"`
	Company         *string   `gorm:"column:company"`
	Role            *string   `gorm:"column:role"`
	OccurredAt      time.Time `gorm:"column:occurred_at;not null;index"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
