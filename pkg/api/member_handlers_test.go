package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge/pkg/authz"
)

func TestListMembers(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "owner-a", authz.RoleOwner)
	h.store.seed(1, "viewer-b", authz.RoleViewer)

	rec := h.do(t, http.MethodGet, "/v1/teams/1/members", "viewer-b", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "owner-a")
	assert.Contains(t, rec.Body.String(), "viewer-b")
}

func TestListMembers_NonMemberDenied(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "owner-a", authz.RoleOwner)

	rec := h.do(t, http.MethodGet, "/v1/teams/1/members", "stranger", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, authz.ErrNotMember, decodeDecision(t, rec).ErrorKind)
}

func TestAddMember_AdminAddsMember(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "admin-a", authz.RoleAdmin)

	rec := h.do(t, http.MethodPost, "/v1/teams/1/members", "admin-a", map[string]interface{}{
		"user_id": "newcomer", "role": "member",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	m, err := h.store.FindMembership(context.Background(), 1, "newcomer")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, authz.RoleMember, m.Role)
}

func TestAddMember_MemberCannotAdd(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "member-a", authz.RoleMember)

	rec := h.do(t, http.MethodPost, "/v1/teams/1/members", "member-a", map[string]interface{}{
		"user_id": "newcomer", "role": "viewer",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, authz.ErrInsufficientPermission, decodeDecision(t, rec).ErrorKind)
}

func TestAddMember_AdminCannotGrantAdmin(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "admin-a", authz.RoleAdmin)

	rec := h.do(t, http.MethodPost, "/v1/teams/1/members", "admin-a", map[string]interface{}{
		"user_id": "newcomer", "role": "admin",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, authz.ErrInvalidRoleTransition, decodeDecision(t, rec).ErrorKind)
}

func TestAddMember_NobodyGrantsOwner(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "owner-a", authz.RoleOwner)

	rec := h.do(t, http.MethodPost, "/v1/teams/1/members", "owner-a", map[string]interface{}{
		"user_id": "newcomer", "role": "owner",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, authz.ErrInvalidRoleTransition, decodeDecision(t, rec).ErrorKind)
}

func TestAddMember_Duplicate(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "owner-a", authz.RoleOwner)
	h.store.seed(1, "existing", authz.RoleViewer)

	rec := h.do(t, http.MethodPost, "/v1/teams/1/members", "owner-a", map[string]interface{}{
		"user_id": "existing", "role": "member",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateMemberRole_OwnerPromotesMember(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "owner-a", authz.RoleOwner)
	target := h.store.seed(1, "member-b", authz.RoleMember)

	rec := h.do(t, http.MethodPatch, fmt.Sprintf("/v1/teams/1/members/%d", target.ID),
		"owner-a", map[string]interface{}{"role": "admin"})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, authz.RoleAdmin, h.store.memberships[target.ID].Role)
}

func TestUpdateMemberRole_AdminCannotTouchAdmin(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "admin-a", authz.RoleAdmin)
	target := h.store.seed(1, "admin-b", authz.RoleAdmin)

	rec := h.do(t, http.MethodPatch, fmt.Sprintf("/v1/teams/1/members/%d", target.ID),
		"admin-a", map[string]interface{}{"role": "member"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, authz.RoleAdmin, h.store.memberships[target.ID].Role)
}

func TestUpdateMemberRole_LastOwnerCannotDemoteSelf(t *testing.T) {
	h := newTestHarness(t, nil)
	owner := h.store.seed(1, "owner-a", authz.RoleOwner)

	rec := h.do(t, http.MethodPatch, fmt.Sprintf("/v1/teams/1/members/%d", owner.ID),
		"owner-a", map[string]interface{}{"role": "member"})

	// The store-level guard fires even though the policy check allowed the
	// transition shape; the response is the last-owner denial.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, authz.ErrLastOwnerProtection, decodeDecision(t, rec).ErrorKind)
	assert.Equal(t, authz.RoleOwner, h.store.memberships[owner.ID].Role)
}

func TestRemoveMember(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "admin-a", authz.RoleAdmin)
	target := h.store.seed(1, "member-b", authz.RoleMember)

	rec := h.do(t, http.MethodDelete, fmt.Sprintf("/v1/teams/1/members/%d", target.ID), "admin-a", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, h.store.memberships, target.ID)
}

func TestRemoveMember_LastOwnerBlocked(t *testing.T) {
	h := newTestHarness(t, nil)
	owner := h.store.seed(1, "owner-a", authz.RoleOwner)

	rec := h.do(t, http.MethodDelete, fmt.Sprintf("/v1/teams/1/members/%d", owner.ID), "owner-a", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, authz.ErrLastOwnerProtection, decodeDecision(t, rec).ErrorKind)
	assert.Contains(t, h.store.memberships, owner.ID)
}

func TestRemoveMember_CoOwnerMayLeave(t *testing.T) {
	h := newTestHarness(t, nil)
	owner := h.store.seed(1, "owner-a", authz.RoleOwner)
	h.store.seed(1, "owner-b", authz.RoleOwner)

	rec := h.do(t, http.MethodDelete, fmt.Sprintf("/v1/teams/1/members/%d", owner.ID), "owner-a", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, h.store.memberships, owner.ID)
}

func TestRemoveMember_TargetInOtherTeam(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "admin-a", authz.RoleAdmin)
	other := h.store.seed(2, "member-z", authz.RoleMember)

	rec := h.do(t, http.MethodDelete, fmt.Sprintf("/v1/teams/1/members/%d", other.ID), "admin-a", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, authz.ErrTargetNotFound, decodeDecision(t, rec).ErrorKind)
}

func TestRemoveMember_MissingActorIs401(t *testing.T) {
	h := newTestHarness(t, nil)
	target := h.store.seed(1, "member-b", authz.RoleMember)

	rec := h.do(t, http.MethodDelete, fmt.Sprintf("/v1/teams/1/members/%d", target.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMemberWrites_RecordDecisionMetrics(t *testing.T) {
	h, metrics := newMeteredHarness(t)
	owner := h.store.seed(1, "owner-a", authz.RoleOwner)
	target := h.store.seed(1, "member-b", authz.RoleMember)

	rec := h.do(t, http.MethodPatch, fmt.Sprintf("/v1/teams/1/members/%d", target.ID),
		"owner-a", map[string]interface{}{"role": "admin"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodDelete, fmt.Sprintf("/v1/teams/1/members/%d", owner.ID), "owner-a", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.DecisionsTotal.WithLabelValues("member_action", "allow", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.DecisionsTotal.WithLabelValues("member_action", "deny", string(authz.ErrLastOwnerProtection))))
}
