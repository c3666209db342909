package conversions

import (
	"context"
	"errors"
	"time"
)

const webhookConsumer = "evt:processed:square_webhook"

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard deduplicates webhook deliveries using Redis SETNX with a TTL.
type Guard struct {
	store idempotencyStore
	ttl   time.Duration
}

// NewGuard builds an idempotency guard that marks events as processed for the
// given TTL.
func NewGuard(store idempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true if the event was already processed, otherwise
// marks it as processed with the configured TTL.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(webhookConsumer, eventID), "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete clears the processed mark so a failed handler can be retried.
func (g *Guard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(webhookConsumer, eventID))
}
