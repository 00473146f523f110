package model

// Role partitions users into consumer and staff views.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Staff reports whether the role sees the live order queue and may change statuses.
func (r Role) Staff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// ValidRole reports whether raw names a known role.
func ValidRole(raw string) bool {
	switch Role(raw) {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
