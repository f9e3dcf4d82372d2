package domain

// RoleTag enumerates the role labels an admin can assign.
type RoleTag string

const (
	RoleTagUser    RoleTag = "user"
	RoleTagSupport RoleTag = "support"
	RoleTagAdmin   RoleTag = "admin"
)

// Valid reports whether the tag is assignable.
func (t RoleTag) Valid() bool {
	switch t {
	case RoleTagUser, RoleTagSupport, RoleTagAdmin:
		return true
	}
	return false
}

// Role is the privilege record for a user. Tag and IsAdmin are independent:
// IsAdmin alone gates role management, while either grants staff access to
// tickets.
type Role struct {
	UserID  string
	Tag     RoleTag
	IsAdmin bool
}

// DefaultRole is the effective role of a user without a stored record.
func DefaultRole(userID string) Role {
	return Role{UserID: userID, Tag: RoleTagUser}
}

// IsStaff reports whether the role has support-or-higher ticket privileges.
func (r Role) IsStaff() bool {
	return r.IsAdmin || r.Tag == RoleTagSupport || r.Tag == RoleTagAdmin
}
