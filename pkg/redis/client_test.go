package redis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "pj:experiment_variant:u1:pricing", `{"variant":"freemium"}`, time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, "pj:experiment_variant:u1:pricing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != `{"variant":"freemium"}` {
		t.Fatalf("unexpected value %q", value)
	}

	if err := client.Del(ctx, "pj:experiment_variant:u1:pricing"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "pj:experiment_variant:u1:pricing"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestScanPrefix(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for _, key := range []string{
		"pj:experiment_variant:u1:pricing",
		"pj:experiment_variant:u1:paywall",
		"pj:experiment_variant:u2:pricing",
	} {
		if err := client.Set(ctx, key, "x", 0); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	keys, err := client.ScanPrefix(ctx, client.VariantKeyPrefix("u1"))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys for u1, got %v", keys)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.VariantKey("user-1", "pricing_page"); got != "pj:experiment_variant:user-1:pricing_page" {
		t.Fatalf("unexpected variant key %s", got)
	}
	if got := client.VariantKeyPrefix("user-1"); got != "pj:experiment_variant:user-1:" {
		t.Fatalf("unexpected variant prefix %s", got)
	}
	if got := client.IdempotencyKey("square_webhook", "evt-1"); got != "pj:idempotency:square_webhook:evt-1" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	cmd := redis.NewScanCmd(ctx, nil)
	cmd.SetVal(keys, 0)
	return cmd
}
