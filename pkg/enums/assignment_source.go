package enums

import "fmt"

// AssignmentSource reports which tier answered a variant lookup.
type AssignmentSource string

const (
	AssignmentSourceLocal      AssignmentSource = "local"
	AssignmentSourceRemote     AssignmentSource = "remote"
	AssignmentSourceCalculated AssignmentSource = "calculated"
)

var validAssignmentSources = []AssignmentSource{
	AssignmentSourceLocal,
	AssignmentSourceRemote,
	AssignmentSourceCalculated,
}

// IsValid reports whether the value matches the canonical assignment source enum.
func (a AssignmentSource) IsValid() bool {
	for _, candidate := range validAssignmentSources {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssignmentSource converts the raw string to AssignmentSource.
func ParseAssignmentSource(value string) (AssignmentSource, error) {
	for _, candidate := range validAssignmentSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment source %q", value)
}
