package enums

import "fmt"

// AdminRole scopes what a dashboard token may do.
type AdminRole string

const (
	// AdminRoleAdmin can manage experiments, force assignments and read metrics.
	AdminRoleAdmin AdminRole = "admin"
	// AdminRoleAnalyst has read-only access to metrics and exports.
	AdminRoleAnalyst AdminRole = "analyst"
)

// IsValid reports whether the role is a known value.
func (r AdminRole) IsValid() bool {
	switch r {
	case AdminRoleAdmin, AdminRoleAnalyst:
		return true
	}
	return false
}

// CanWrite reports whether the role may mutate experiments and assignments.
func (r AdminRole) CanWrite() bool {
	return r == AdminRoleAdmin
}

// ParseAdminRole validates a raw string into an AdminRole.
func ParseAdminRole(value string) (AdminRole, error) {
	role := AdminRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid admin role %q", value)
	}
	return role, nil
}
