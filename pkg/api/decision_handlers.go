package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/httputil"
	"github.com/rankforge/rankforge/pkg/observability"
)

// teamPermissionRequest asks whether an actor holds a permission on a team
type teamPermissionRequest struct {
	ActorID    string           `json:"actor_id"`
	TeamID     int64            `json:"team_id"`
	Permission authz.Permission `json:"permission"`
}

// decideTeamPermission handles POST /v1/decisions/team-permission
func (s *Server) decideTeamPermission(w http.ResponseWriter, r *http.Request) {
	var req teamPermissionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ActorID, "actor_id") {
		return
	}
	if !req.Permission.Valid() {
		httputil.WriteValidationError(w, fmt.Sprintf("unknown permission: %q", req.Permission))
		return
	}

	start := time.Now()
	decision, err := s.evaluator.CheckTeamPermission(r.Context(), req.ActorID, req.TeamID, req.Permission)
	if err != nil {
		s.writeEvaluationError(w, r, "team permission", err)
		return
	}
	s.observe("team_permission", decision, start)
	httputil.WriteDecision(w, decision)
}

// decideMemberAction handles POST /v1/decisions/member-action
func (s *Server) decideMemberAction(w http.ResponseWriter, r *http.Request) {
	var check authz.MemberActionCheck
	if !httputil.ParseJSONOrError(w, r, &check) {
		return
	}
	if !httputil.RequireNonEmpty(w, check.ActorID, "actor_id") {
		return
	}
	switch check.Action {
	case authz.MemberActionRemove:
	case authz.MemberActionUpdateRole:
		if !check.NewRole.Valid() {
			httputil.WriteValidationError(w, fmt.Sprintf("unknown role: %q", check.NewRole))
			return
		}
	default:
		httputil.WriteValidationError(w, fmt.Sprintf("unknown action: %q", check.Action))
		return
	}

	start := time.Now()
	decision, err := s.memberGuard.CheckMemberAction(r.Context(), check)
	if err != nil {
		s.writeEvaluationError(w, r, "member action", err)
		return
	}
	s.observe("member_action", decision, start)
	httputil.WriteDecision(w, decision)
}

// featureAccessRequest asks whether a team's plan includes a feature
type featureAccessRequest struct {
	TeamID  int64  `json:"team_id"`
	Feature string `json:"feature"`
}

// decideFeatureAccess handles POST /v1/decisions/feature-access
func (s *Server) decideFeatureAccess(w http.ResponseWriter, r *http.Request) {
	var req featureAccessRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Feature, "feature") {
		return
	}

	start := time.Now()
	decision, err := s.entitlement.CheckFeatureAccess(r.Context(), req.TeamID, req.Feature)
	if err != nil {
		s.writeEvaluationError(w, r, "feature access", err)
		return
	}
	s.observe("feature_access", decision, start)
	httputil.WriteDecision(w, decision)
}

// usageLimitRequest asks whether a team may use a metered feature once more.
// CurrentUsage is optional; when absent the live counter is consulted.
type usageLimitRequest struct {
	TeamID       int64  `json:"team_id"`
	Feature      string `json:"feature"`
	CurrentUsage *int64 `json:"current_usage,omitempty"`
}

// decideUsageLimit handles POST /v1/decisions/usage-limit
func (s *Server) decideUsageLimit(w http.ResponseWriter, r *http.Request) {
	var req usageLimitRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Feature, "feature") {
		return
	}

	start := time.Now()
	decision, err := s.entitlement.CheckUsageLimit(r.Context(), req.TeamID, req.Feature, req.CurrentUsage)
	if err != nil {
		s.writeEvaluationError(w, r, "usage limit", err)
		return
	}
	s.observe("usage_limit", decision, start)
	httputil.WriteDecision(w, decision)
}

func (s *Server) writeEvaluationError(w http.ResponseWriter, r *http.Request, what string, err error) {
	observability.FromContext(r.Context()).WithError(err).Errorf("Failed to evaluate %s", what)
	httputil.WriteInternalError(w, fmt.Errorf("failed to evaluate %s", what))
}

func (s *Server) observe(component string, decision *authz.Decision, start time.Time) {
	s.observeOutcome(component, decision)
	if s.metrics != nil {
		s.metrics.DecisionDuration.WithLabelValues(component).Observe(time.Since(start).Seconds())
	}
}

// observeOutcome counts a decision without timing it, for paths where the
// denial is synthesized rather than evaluated.
func (s *Server) observeOutcome(component string, decision *authz.Decision) {
	if s.metrics != nil {
		s.metrics.ObserveDecision(component, decision.Allowed, string(decision.ErrorKind))
	}
}
