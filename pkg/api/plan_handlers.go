package api

import (
	"errors"
	"net/http"

	"github.com/rankforge/rankforge/pkg/entitlement"
	"github.com/rankforge/rankforge/pkg/httputil"
	"github.com/rankforge/rankforge/pkg/observability"
)

// listPlans handles GET /v1/plans
func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	ids := s.plans.PlanIDs()
	plans := make([]*entitlement.Plan, 0, len(ids))
	for _, id := range ids {
		plan, err := s.plans.ResolvePlan(r.Context(), id)
		if err != nil || plan == nil {
			continue
		}
		plans = append(plans, plan)
	}
	httputil.WriteSuccess(w, map[string]interface{}{"plans": plans})
}

// getTeamPlan handles GET /v1/teams/{teamID}/plan: the plan currently
// governing the team after billing status is applied
func (s *Server) getTeamPlan(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return
	}

	plan, denied, err := s.entitlement.ResolvePlan(r.Context(), teamID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to resolve plan")
		httputil.WriteInternalError(w, errors.New("failed to resolve plan"))
		return
	}
	if denied != nil {
		httputil.WriteDecision(w, denied)
		return
	}
	httputil.WriteSuccess(w, plan)
}
