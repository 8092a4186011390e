package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/entitlement"
)

func TestListPlans(t *testing.T) {
	h := newTestHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/v1/plans", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Plans []entitlement.Plan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Plans, 4)
}

func TestGetTeamPlan_FallsBackToFree(t *testing.T) {
	h := newTestHarness(t, nil)
	h.store.seed(1, "viewer-a", authz.RoleViewer)

	rec := h.do(t, http.MethodGet, "/v1/teams/1/plan", "viewer-a", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var plan entitlement.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, entitlement.PlanFree, plan.ID)
}

func TestGetTeamPlan_ActiveSubscription(t *testing.T) {
	h := newTestHarness(t, activeEntitlement(entitlement.PlanStarter))
	h.store.seed(1, "viewer-a", authz.RoleViewer)

	rec := h.do(t, http.MethodGet, "/v1/teams/1/plan", "viewer-a", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var plan entitlement.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, entitlement.PlanStarter, plan.ID)
}

func TestGetTeamPlan_UnknownPlanIs500(t *testing.T) {
	h := newTestHarness(t, activeEntitlement("legacy-gold"))
	h.store.seed(1, "viewer-a", authz.RoleViewer)

	rec := h.do(t, http.MethodGet, "/v1/teams/1/plan", "viewer-a", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, authz.ErrConfigurationError, decodeDecision(t, rec).ErrorKind)
}
