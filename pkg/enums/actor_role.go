package enums

import "fmt"

// ActorRole is the coarse role carried in access tokens. Token issuance lives
// in the storefront's auth service; this backend only verifies and routes.
type ActorRole string

const (
	ActorRoleAdmin   ActorRole = "admin"
	ActorRoleClerk   ActorRole = "clerk"
	ActorRoleService ActorRole = "service"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleClerk,
	ActorRoleService,
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
