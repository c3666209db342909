package experiments

import (
	"time"

	"github.com/google/uuid"

	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

// CreateParams carries the fields needed to register a new experiment.
type CreateParams struct {
	Name         string
	Description  *string
	TrafficSplit map[string]int
}

// UpdateSplitParams replaces the traffic split of a draft experiment.
type UpdateSplitParams struct {
	Name         string
	TrafficSplit map[string]int
}

// TransitionParams moves an experiment through its lifecycle.
type TransitionParams struct {
	Name    string
	To      enums.ExperimentStatus
	AdminID string
}

// ListParams configures cursor-paginated experiment listings.
type ListParams struct {
	Status *enums.ExperimentStatus
	Limit  int
	Cursor string
}

// View is the service-level representation of an experiment.
type View struct {
	ID           uuid.UUID              `json:"id"`
	Name         string                 `json:"name"`
	Description  *string                `json:"description,omitempty"`
	Status       enums.ExperimentStatus `json:"status"`
	TrafficSplit map[string]int         `json:"trafficSplit"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// ListResult bundles a page of experiments with the follow-up cursor.
type ListResult struct {
	Experiments []View  `json:"experiments"`
	NextCursor  *string `json:"nextCursor,omitempty"`
}
