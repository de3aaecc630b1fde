package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleMember     = "member"
	RoleViewer     = "viewer" // read-only dashboard access
	RoleSuperAdmin = "super_admin"
)

// Writers may create, change and delete assistants and numbers.
var Writers = []string{RoleOwner, RoleMember}

// Readers may only list and read.
var Readers = []string{RoleOwner, RoleMember, RoleViewer}

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
