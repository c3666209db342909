package outbox

import "time"

// AssignmentCreatedV1 describes an organic sticky assignment.
type AssignmentCreatedV1 struct {
	UserID         string    `json:"userId"`
	ExperimentName string    `json:"experimentName"`
	Variant        string    `json:"variant"`
	Bucket         int       `json:"bucket"`
	AssignedAt     time.Time `json:"assignedAt"`
}

// AssignmentForcedV1 describes an administrative variant override.
type AssignmentForcedV1 struct {
	UserID         string    `json:"userId"`
	ExperimentName string    `json:"experimentName"`
	Variant        string    `json:"variant"`
	AssignedAt     time.Time `json:"assignedAt"`
}

// PurchaseRecordedV1 describes a conversion ingested from the payment provider.
type PurchaseRecordedV1 struct {
	UserID          string    `json:"userId"`
	SquarePaymentID string    `json:"squarePaymentId"`
	AmountCents     int64     `json:"amountCents"`
	Currency        string    `json:"currency"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// ExperimentStatusChangedV1 describes a lifecycle transition.
type ExperimentStatusChangedV1 struct {
	ExperimentName string `json:"experimentName"`
	FromStatus     string `json:"fromStatus"`
	ToStatus       string `json:"toStatus"`
}
