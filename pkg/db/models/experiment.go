package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

// Experiment stores a named experiment configuration and its lifecycle state.
type Experiment struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                 `gorm:"column:name;not null;unique"`
	Description  *string                `gorm:"column:description"`
	Status       enums.ExperimentStatus `gorm:"column:status;type:experiment_status_enum;not null;default:'draft'"`
	TrafficSplit json.RawMessage        `gorm:"column:traffic_split;type:jsonb;not null"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
