package authz

// Catalog is the immutable role/permission table. It is built once at process
// start and is safe for concurrent reads.
type Catalog struct {
	grants map[Role][]Permission
}

// builtInGrants returns the permission set for each role. Sets grow
// monotonically with rank: every role holds everything the roles below it
// hold.
func builtInGrants() map[Role][]Permission {
	return map[Role][]Permission{
		RoleViewer: {
			PermissionRead,
		},
		RoleMember: {
			PermissionRead,
			PermissionWrite,
		},
		RoleAdmin: {
			PermissionRead,
			PermissionWrite,
			PermissionAdmin,
		},
		RoleOwner: {
			PermissionRead,
			PermissionWrite,
			PermissionAdmin,
			PermissionOwner,
		},
	}
}

// NewCatalog creates the role catalog with the built-in grant table
func NewCatalog() *Catalog {
	return &Catalog{grants: builtInGrants()}
}

// Permissions returns the permission set held by a role. Unknown roles hold
// nothing.
func (c *Catalog) Permissions(role Role) []Permission {
	perms := c.grants[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether a role's permission set contains the
// required permission
func (c *Catalog) HasPermission(role Role, required Permission) bool {
	for _, p := range c.grants[role] {
		if p == required {
			return true
		}
	}
	return false
}

// Roles returns all known roles ordered by descending rank
func (c *Catalog) Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer}
}
