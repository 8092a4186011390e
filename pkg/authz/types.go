package authz

import (
	"context"
	"net/http"
	"time"
)

// Role represents an authorization level held by a user within one team
type Role string

const (
	RoleOwner  Role = "owner"  // Full control, including ownership transfer
	RoleAdmin  Role = "admin"  // Can manage members and projects
	RoleMember Role = "member" // Can create and edit projects
	RoleViewer Role = "viewer" // Read-only access
)

// Rank returns the hierarchy rank of a role. Higher ranks outrank lower ones.
// Unknown roles rank 0, below every known role.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Permission represents an atomic capability granted by a role
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
	PermissionOwner Permission = "owner"
)

// Valid reports whether the permission is one of the known permissions
func (p Permission) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin, PermissionOwner:
		return true
	default:
		return false
	}
}

// MemberAction represents an action targeting a specific team member
type MemberAction string

const (
	MemberActionRemove     MemberAction = "remove"
	MemberActionUpdateRole MemberAction = "update_role"
)

// ErrorKind classifies why a decision denied an action
type ErrorKind string

const (
	ErrNotMember              ErrorKind = "not_member"
	ErrInsufficientPermission ErrorKind = "insufficient_permission"
	ErrTargetNotFound         ErrorKind = "target_not_found"
	ErrInvalidRoleTransition  ErrorKind = "invalid_role_transition"
	ErrLastOwnerProtection    ErrorKind = "last_owner_protection"
	ErrUpgradeRequired        ErrorKind = "upgrade_required"
	ErrConfigurationError     ErrorKind = "configuration_error"
)

// HTTPStatus returns the transport status a handler should map this kind to
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ErrNotMember, ErrInsufficientPermission, ErrUpgradeRequired:
		return http.StatusForbidden
	case ErrTargetNotFound:
		return http.StatusNotFound
	case ErrInvalidRoleTransition, ErrLastOwnerProtection:
		return http.StatusBadRequest
	case ErrConfigurationError:
		return http.StatusInternalServerError
	default:
		return http.StatusForbidden
	}
}

// Decision is the uniform result of every policy evaluation. Denials are
// always typed decisions; Go errors are reserved for infrastructure faults.
type Decision struct {
	Allowed      bool      `json:"allowed"`
	Role         Role      `json:"role,omitempty"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	Message      string    `json:"message,omitempty"`
	HTTPStatus   int       `json:"http_status,omitempty"`
	CurrentUsage *int64    `json:"current_usage,omitempty"`
	Limit        *int64    `json:"limit,omitempty"`
	Unlimited    bool      `json:"unlimited,omitempty"`
}

// Allow builds an allowing decision carrying the actor's resolved role
func Allow(role Role) *Decision {
	return &Decision{Allowed: true, Role: role}
}

// Deny builds a denying decision for the given kind
func Deny(kind ErrorKind, message string) *Decision {
	return &Decision{
		Allowed:    false,
		ErrorKind:  kind,
		Message:    message,
		HTTPStatus: kind.HTTPStatus(),
	}
}

// Membership represents a user's membership in a team
type Membership struct {
	ID       int64     `json:"id"`
	TeamID   int64     `json:"team_id"`
	UserID   string    `json:"user_id"` // resolved actor identity
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// TeamRepository is the persistence collaborator the evaluators read from.
// Lookups return (nil, nil) when no row matches; errors indicate
// infrastructure faults only.
type TeamRepository interface {
	FindMembership(ctx context.Context, teamID int64, userID string) (*Membership, error)
	FindMembershipByID(ctx context.Context, membershipID int64) (*Membership, error)
	CountOwners(ctx context.Context, teamID int64) (int, error)
}

// MemberActionCheck represents a member-targeted action to evaluate
type MemberActionCheck struct {
	ActorID  string       `json:"actor_id"`
	TeamID   int64        `json:"team_id"`
	TargetID int64        `json:"target_id"` // membership id of the target
	Action   MemberAction `json:"action"`
	NewRole  Role         `json:"new_role,omitempty"` // required for update_role
}
