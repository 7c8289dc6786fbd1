// role.go -- Operator role ordering.
package models

import "strings"

// Role is an operator permission level.
// Roles form a total order: VIEWER < OPERATOR < ADMIN < SUPER_ADMIN.
type Role string

const (
	RoleViewer     Role = "VIEWER"
	RoleOperator   Role = "OPERATOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Roles lists every known role from lowest to highest rank.
var Roles = []Role{RoleViewer, RoleOperator, RoleAdmin, RoleSuperAdmin}

// Rank returns the role's position in the ordering, starting at 1.
// Unknown roles rank 0 and never satisfy any requirement.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleOperator:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperAdmin:
		return 4
	}
	return 0
}

// AtLeast reports whether r ranks at or above required.
func (r Role) AtLeast(required Role) bool {
	rank, need := r.Rank(), required.Rank()
	return rank > 0 && need > 0 && rank >= need
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// ParseRole converts user input (any case) into a Role.
// Returns false for unknown values.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}
