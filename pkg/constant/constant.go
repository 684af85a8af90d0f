package constant

// Role names seeded at bootstrap and referenced across the service layer.
const (
	DefaultUserRoleName = "user"
	AdminRoleName       = "admin"
)

// Role match policies for authorization checks that take a set of role names.
const (
	RoleMatchAny = "any"
	RoleMatchAll = "all"
)

// ResetTokenBytes is the entropy of a password-reset token before hex encoding.
const ResetTokenBytes = 32

// DefaultUserRoleDescription and AdminRoleDescription are used when the roles
// are first created.
const (
	DefaultUserRoleDescription = "Regular user role"
	AdminRoleDescription       = "Administrator role"
)

// DefaultUserPermissions are granted to the "user" role.
var DefaultUserPermissions = []string{"read_self", "update_self"}

// AdminPermissions are granted to the "admin" role.
var AdminPermissions = []string{"create_user", "read_user", "update_user", "delete_user", "manage_roles"}
