package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMemberAction_ActorNotMember(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner@example.com", RoleOwner),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "stranger@example.com", TeamID: 7, TargetID: 1, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrNotMember, decision.ErrorKind)
}

func TestCheckMemberAction_TargetNotFound(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner@example.com", RoleOwner),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner@example.com", TeamID: 7, TargetID: 99, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrTargetNotFound, decision.ErrorKind)
	assert.Equal(t, http.StatusNotFound, decision.HTTPStatus)
}

func TestCheckMemberAction_TargetInOtherTeamNotFound(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner@example.com", RoleOwner),
		membership(2, 8, "other@example.com", RoleMember),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner@example.com", TeamID: 7, TargetID: 2, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.Equal(t, ErrTargetNotFound, decision.ErrorKind)
}

func TestCheckMemberAction_AdminCannotTouchOwner(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner@example.com", RoleOwner),
		membership(2, 7, "admin@example.com", RoleAdmin),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "admin@example.com", TeamID: 7, TargetID: 1, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrInsufficientPermission, decision.ErrorKind)
	assert.Contains(t, decision.Message, "owners can manage other owners")
}

func TestCheckMemberAction_AdminCannotTouchAdmin(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "admin1@example.com", RoleAdmin),
		membership(2, 7, "admin2@example.com", RoleAdmin),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "admin1@example.com", TeamID: 7, TargetID: 2, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrInsufficientPermission, decision.ErrorKind)
	assert.Contains(t, decision.Message, "owners can manage admins")
}

func TestCheckMemberAction_AdminRemovesMember(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "admin@example.com", RoleAdmin),
		membership(2, 7, "member@example.com", RoleMember),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "admin@example.com", TeamID: 7, TargetID: 2, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, RoleAdmin, decision.Role)
}

func TestCheckMemberAction_LastOwnerProtected(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner@example.com", RoleOwner),
		membership(2, 7, "member@example.com", RoleMember),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner@example.com", TeamID: 7, TargetID: 1, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrLastOwnerProtection, decision.ErrorKind)
	assert.Equal(t, http.StatusBadRequest, decision.HTTPStatus)
	assert.Contains(t, decision.Message, "Transfer ownership first")
}

func TestCheckMemberAction_OwnerLeavesWithCoOwner(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner1@example.com", RoleOwner),
		membership(2, 7, "owner2@example.com", RoleOwner),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner1@example.com", TeamID: 7, TargetID: 1, Action: MemberActionRemove,
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckMemberAction_RoleChangeDelegatesToValidator(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "owner@example.com", RoleOwner),
		membership(2, 7, "member@example.com", RoleMember),
	}}
	guard := NewMemberGuard(repo)

	// Owner promoting a member to admin is fine.
	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner@example.com", TeamID: 7, TargetID: 2,
		Action: MemberActionUpdateRole, NewRole: RoleAdmin,
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Granting OWNER through a role edit is never allowed.
	decision, err = guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner@example.com", TeamID: 7, TargetID: 2,
		Action: MemberActionUpdateRole, NewRole: RoleOwner,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrInvalidRoleTransition, decision.ErrorKind)
	assert.Equal(t, http.StatusBadRequest, decision.HTTPStatus)
}

func TestCheckMemberAction_MemberCannotChangeRoles(t *testing.T) {
	repo := &fakeTeamRepo{memberships: []*Membership{
		membership(1, 7, "member1@example.com", RoleMember),
		membership(2, 7, "member2@example.com", RoleMember),
	}}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "member1@example.com", TeamID: 7, TargetID: 2,
		Action: MemberActionUpdateRole, NewRole: RoleViewer,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ErrInvalidRoleTransition, decision.ErrorKind)
}

func TestCheckMemberAction_CountOwnersError(t *testing.T) {
	repo := &fakeTeamRepo{
		memberships: []*Membership{
			membership(1, 7, "owner@example.com", RoleOwner),
		},
		countErr: errors.New("connection reset"),
	}
	guard := NewMemberGuard(repo)

	decision, err := guard.CheckMemberAction(context.Background(), MemberActionCheck{
		ActorID: "owner@example.com", TeamID: 7, TargetID: 1, Action: MemberActionRemove,
	})
	assert.Error(t, err)
	assert.Nil(t, decision)
}
