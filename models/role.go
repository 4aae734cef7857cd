package models

// Role is the permission level carried by a credential
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleDeployer Role = "deployer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleDeployer, RoleAdmin:
		return true
	}
	return false
}

// Allows reports whether r grants at least the permissions of required.
func (r Role) Allows(required Role) bool {
	return r.rank() >= required.rank() && required.rank() > 0
}

func (r Role) rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleDeployer:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}
