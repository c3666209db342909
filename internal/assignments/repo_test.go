package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepjourney/prepjourney-backend/pkg/db/models"
)

func newTestRepo(t *testing.T) Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Mirrors the postgres migration, including the unique index the upsert
	// conflicts on.
	ddl := `CREATE TABLE variant_assignments (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		experiment_name text NOT NULL,
		variant text NOT NULL,
		bucket integer NOT NULL,
		assigned_at datetime NOT NULL,
		created_at datetime,
		updated_at datetime,
		CONSTRAINT ux_variant_assignments_user_experiment UNIQUE (user_id, experiment_name)
	)`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return NewRepository(conn)
}

func TestUpsertReplayKeepsOneRow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	assignedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first := &models.VariantAssignment{
		ID:             uuid.New(),
		UserID:         "user-1",
		ExperimentName: "pricing",
		Variant:        "control",
		Bucket:         12,
		AssignedAt:     assignedAt,
	}
	if err := r.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Replaying the sync after login must not duplicate the row.
	replay := &models.VariantAssignment{
		ID:             uuid.New(),
		UserID:         "user-1",
		ExperimentName: "pricing",
		Variant:        "control",
		Bucket:         12,
		AssignedAt:     assignedAt,
	}
	if err := r.Upsert(ctx, replay); err != nil {
		t.Fatalf("replayed upsert: %v", err)
	}

	var count int64
	if err := r.(*repository).DB(ctx).Model(&models.VariantAssignment{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row after replay, got %d", count)
	}
}

func TestUpsertRefreshesConflictingRow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.Upsert(ctx, &models.VariantAssignment{
		ID:             uuid.New(),
		UserID:         "user-1",
		ExperimentName: "pricing",
		Variant:        "control",
		Bucket:         12,
		AssignedAt:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	forced := &models.VariantAssignment{
		ID:             uuid.New(),
		UserID:         "user-1",
		ExperimentName: "pricing",
		Variant:        "treatment",
		Bucket:         ForcedBucket,
		AssignedAt:     time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	if err := r.Upsert(ctx, forced); err != nil {
		t.Fatalf("conflicting upsert: %v", err)
	}

	stored, err := r.Find(ctx, "user-1", "pricing")
	if err != nil || stored == nil {
		t.Fatalf("find after upsert: %v / %v", stored, err)
	}
	if stored.Variant != "treatment" || stored.Bucket != ForcedBucket {
		t.Fatalf("conflict update did not apply, got %+v", stored)
	}

	var count int64
	if err := r.(*repository).DB(ctx).Model(&models.VariantAssignment{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}
