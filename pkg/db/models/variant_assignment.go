package models

import (
	"time"

	"github.com/google/uuid"
)

// VariantAssignment is the authoritative record of a user's sticky variant for
// one experiment. Bucket is cached alongside the variant so historical
// assignments stay auditable even after the traffic split changes; a bucket of
// -1 marks an administrative override rather than an organic assignment.
type VariantAssignment struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         string    `gorm:"column:user_id;not null;uniqueIndex:ux_variant_assignments_user_experiment,priority:1"`
	ExperimentName string    `gorm:"column:experiment_name;not null;uniqueIndex:ux_variant_assignments_user_experiment,priority:2;index"`
	Variant        string    `gorm:"column:variant;not null"`
	Bucket         int       `gorm:"column:bucket;not null"`
	AssignedAt     time.Time `gorm:"column:assigned_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
