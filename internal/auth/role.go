package auth

// Role is the platform-wide role carried in access tokens.
type Role string

const (
	RolePlayer Role = "player"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// CanOwnFields reports whether r may create and manage fields.
func (r Role) CanOwnFields() bool {
	return r == RoleOwner || r == RoleAdmin
}
