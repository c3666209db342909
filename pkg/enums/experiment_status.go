package enums

import "fmt"

// ExperimentStatus describes the lifecycle state of an experiment.
type ExperimentStatus string

const (
	ExperimentStatusDraft     ExperimentStatus = "draft"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusConcluded ExperimentStatus = "concluded"
)

var validExperimentStatuses = []ExperimentStatus{
	ExperimentStatusDraft,
	ExperimentStatusRunning,
	ExperimentStatusConcluded,
}

// IsValid reports whether the value matches the canonical experiment status enum.
func (s ExperimentStatus) IsValid() bool {
	for _, candidate := range validExperimentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseExperimentStatus converts the raw string to ExperimentStatus.
func ParseExperimentStatus(value string) (ExperimentStatus, error) {
	for _, candidate := range validExperimentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid experiment status %q", value)
}

// CanTransitionTo encodes the draft -> running -> concluded lifecycle.
func (s ExperimentStatus) CanTransitionTo(next ExperimentStatus) bool {
	switch s {
	case ExperimentStatusDraft:
		return next == ExperimentStatusRunning
	case ExperimentStatusRunning:
		return next == ExperimentStatusConcluded
	default:
		return false
	}
}
