package domain

import "time"

// Role enumerates caller roles threaded through every operation.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleClient    Role = "CLIENT"
	RoleSupport   Role = "SUPPORT"
	RoleModerator Role = "MODERATOR"
	RoleRoot      Role = "ROOT"
)

// ElevatedRoles is the set of support-capable roles, in the order used when
// resolving a support identity for welcome messages.
var ElevatedRoles = []Role{RoleSupport, RoleModerator, RoleRoot}

// Elevated reports whether the role carries support-wide access.
func (r Role) Elevated() bool {
	switch r {
	case RoleSupport, RoleModerator, RoleRoot:
		return true
	}
	return false
}

// Account is an identity that can participate in chat sessions. Credential
// management lives outside this service; accounts exist here for participant
// and support-identity lookups.
type Account struct {
	ID          string
	Name        string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
