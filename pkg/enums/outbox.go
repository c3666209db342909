package enums

import "fmt"

// OutboxEventType is the canonical event_type for outbox routing.
type OutboxEventType string

const (
	EventAssignmentCreated       OutboxEventType = "assignment.created"
	EventAssignmentForced        OutboxEventType = "assignment.forced"
	EventPurchaseRecorded        OutboxEventType = "purchase.recorded"
	EventExperimentStatusChanged OutboxEventType = "experiment.status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAssignmentCreated,
	EventAssignmentForced,
	EventPurchaseRecorded,
	EventExperimentStatusChanged,
}

// IsValid reports whether the value matches the canonical outbox event type enum.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateVariantAssignment OutboxAggregateType = "variant_assignment"
	AggregatePurchase          OutboxAggregateType = "purchase"
	AggregateExperiment        OutboxAggregateType = "experiment"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateVariantAssignment,
	AggregatePurchase,
	AggregateExperiment,
}

// IsValid reports whether the value matches the canonical aggregate type enum.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxDLQErrorReason classifies why an outbox event was dead-lettered.
type OutboxDLQErrorReason string

const (
	DLQReasonPublishFailed  OutboxDLQErrorReason = "publish_failed"
	DLQReasonPayloadInvalid OutboxDLQErrorReason = "payload_invalid"
)
