package assignments

import (
	"time"

	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

// ForcedBucket marks an administrative override; organic buckets are [0,100).
const ForcedBucket = -1

// CachedAssignment is the JSON document stored in the fast cache tier.
type CachedAssignment struct {
	Variant    string    `json:"variant"`
	Bucket     int       `json:"bucket"`
	AssignedAt time.Time `json:"assignedAt"`
}

// Forced reports whether the assignment was an administrative override.
func (c CachedAssignment) Forced() bool {
	return c.Bucket < 0
}

// VariantResult is the outcome of a unified variant lookup. Err carries
// non-fatal storage trouble for observability; the variant is always usable.
type VariantResult struct {
	Variant string
	Bucket  int
	IsNew   bool
	Source  enums.AssignmentSource
	Err     error
}

// SyncOutcome reports the result of pushing one cached assignment to the
// remote store.
type SyncOutcome struct {
	ExperimentName string `json:"experimentName"`
	Variant        string `json:"variant,omitempty"`
	Synced         bool   `json:"synced"`
	Error          string `json:"error,omitempty"`
}

// AssignmentView is the admin-facing representation of a stored assignment.
type AssignmentView struct {
	UserID         string    `json:"userId"`
	ExperimentName string    `json:"experimentName"`
	Variant        string    `json:"variant"`
	Bucket         int       `json:"bucket"`
	Forced         bool      `json:"forced"`
	AssignedAt     time.Time `json:"assignedAt"`
}
