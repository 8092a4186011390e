package authz

import (
	"context"
	"fmt"
)

// MemberGuard decides whether an actor may remove or re-role a specific team
// member, enforcing the role hierarchy and the last-owner invariant.
type MemberGuard struct {
	repo TeamRepository
}

// NewMemberGuard creates a member action guard
func NewMemberGuard(repo TeamRepository) *MemberGuard {
	return &MemberGuard{repo: repo}
}

// CheckMemberAction evaluates a member-targeted action. Rules run in order
// and the first matching rule decides:
//
//  1. Missing actor membership denies NotMember; missing target denies
//     TargetNotFound.
//  2. Only owners can manage other owners.
//  3. Admins and owners may manage members and viewers.
//  4. Only owners can manage admins.
//  5. An owner removing themselves must not be the team's last owner.
//  6. Role changes additionally pass through IsValidRoleTransition.
//
// The owner-count read in rule 5 is not atomic with the removal that follows;
// the repository closes that window with a conditional delete.
func (g *MemberGuard) CheckMemberAction(ctx context.Context, check MemberActionCheck) (*Decision, error) {
	actor, err := g.repo.FindMembership(ctx, check.TeamID, check.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor membership: %w", err)
	}
	if actor == nil {
		return Deny(ErrNotMember, "You are not a member of this team"), nil
	}

	target, err := g.repo.FindMembershipByID(ctx, check.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target membership: %w", err)
	}
	if target == nil || target.TeamID != check.TeamID {
		return Deny(ErrTargetNotFound, "Team member not found"), nil
	}

	if target.Role == RoleOwner && actor.Role != RoleOwner {
		return Deny(ErrInsufficientPermission, "Only owners can manage other owners"), nil
	}

	managesLowerRole := (actor.Role == RoleAdmin || actor.Role == RoleOwner) &&
		(target.Role == RoleMember || target.Role == RoleViewer)

	if !managesLowerRole && target.Role == RoleAdmin && actor.Role != RoleOwner {
		return Deny(ErrInsufficientPermission, "Only owners can manage admins"), nil
	}

	if check.Action == MemberActionRemove && actor.ID == target.ID && actor.Role == RoleOwner {
		owners, err := g.repo.CountOwners(ctx, check.TeamID)
		if err != nil {
			return nil, fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return Deny(ErrLastOwnerProtection, "Cannot remove the last owner. Transfer ownership first."), nil
		}
	}

	if check.Action == MemberActionUpdateRole {
		if !IsValidRoleTransition(target.Role, check.NewRole, actor.Role) {
			return Deny(ErrInvalidRoleTransition,
				fmt.Sprintf("Role %q may not change this member from %q to %q", actor.Role, target.Role, check.NewRole)), nil
		}
	}

	return Allow(actor.Role), nil
}
