package vouch

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is a regular account
	RoleUser UserRole = "user"
	// RoleSuperAdmin can administer users and testimonials
	RoleSuperAdmin UserRole = "super_admin"
)

var roleHierarchy = map[UserRole]int{
	RoleUser:       0,
	RoleSuperAdmin: 1,
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// RoleIsAtLeast checks if a role meets the minimum required level. Unknown
// roles never qualify.
func RoleIsAtLeast(r, minRole UserRole) bool {
	level, ok := roleHierarchy[r]
	if !ok {
		return false
	}
	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return level >= minLevel
}
