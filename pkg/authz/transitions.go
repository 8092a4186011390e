package authz

// IsValidRoleTransition reports whether the acting role may change a member
// from one role to another. Pure, no I/O.
//
// Owners may perform any transition except granting OWNER itself: ownership
// moves through a dedicated transfer flow, never an ordinary role edit.
// Admins may only shuffle a member between MEMBER and VIEWER; a transition
// touching OWNER or ADMIN on either side is rejected. Members and viewers may
// not change roles at all.
func IsValidRoleTransition(from, to, acting Role) bool {
	switch acting {
	case RoleOwner:
		return to != RoleOwner
	case RoleAdmin:
		if from == RoleOwner || from == RoleAdmin {
			return false
		}
		if to == RoleOwner || to == RoleAdmin {
			return false
		}
		return true
	default:
		return false
	}
}

// AssignableRoles returns the roles the acting role may assign to others
func AssignableRoles(acting Role) []Role {
	switch acting {
	case RoleOwner:
		return []Role{RoleAdmin, RoleMember, RoleViewer}
	case RoleAdmin:
		return []Role{RoleMember, RoleViewer}
	default:
		return []Role{}
	}
}
