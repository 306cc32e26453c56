package rbac

// Role names. Keep these stable; they are part of auth contracts.
// Every tenant signs up as owner; admin is a platform-operator role
// used by the internal admin console.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
