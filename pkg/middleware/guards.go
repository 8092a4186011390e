package middleware

import (
	"net/http"

	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/entitlement"
	"github.com/rankforge/rankforge/pkg/httputil"
	"github.com/rankforge/rankforge/pkg/observability"
)

// Guards holds the policy evaluators route guards delegate to.
//
// See the package documentation for ordering requirements: Actor must run
// before any guard.
type Guards struct {
	evaluator   *authz.Evaluator
	entitlement *entitlement.Guard
	metrics     *observability.Metrics
}

// NewGuards creates route-level policy guards. metrics may be nil.
func NewGuards(evaluator *authz.Evaluator, entitlementGuard *entitlement.Guard, metrics *observability.Metrics) *Guards {
	return &Guards{evaluator: evaluator, entitlement: entitlementGuard, metrics: metrics}
}

// RequireTeamPermission denies the request unless the actor holds the
// permission on the team named by the {teamID} route variable
func (g *Guards) RequireTeamPermission(required authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, teamID, ok := g.requestSubject(w, r)
			if !ok {
				return
			}

			decision, err := g.evaluator.CheckTeamPermission(r.Context(), actor, teamID, required)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("Permission check failed")
				httputil.WriteInternalError(w, err)
				return
			}
			g.observe("team_permission", decision)
			if !decision.Allowed {
				httputil.WriteDecision(w, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature denies the request unless the team's plan includes the
// feature
func (g *Guards) RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, teamID, ok := g.requestSubject(w, r)
			if !ok {
				return
			}

			decision, err := g.entitlement.CheckFeatureAccess(r.Context(), teamID, feature)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("Feature check failed")
				httputil.WriteInternalError(w, err)
				return
			}
			g.observe("feature_access", decision)
			if !decision.Allowed {
				httputil.WriteDecision(w, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnforceUsageLimit denies the request when the team's current usage has
// reached the feature's plan ceiling
func (g *Guards) EnforceUsageLimit(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, teamID, ok := g.requestSubject(w, r)
			if !ok {
				return
			}

			decision, err := g.entitlement.CheckUsageLimit(r.Context(), teamID, feature, nil)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Error("Usage limit check failed")
				httputil.WriteInternalError(w, err)
				return
			}
			g.observe("usage_limit", decision)
			if !decision.Allowed {
				httputil.WriteDecision(w, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestSubject pulls the actor and team out of the request, writing the
// error response when either is missing
func (g *Guards) requestSubject(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	actor := observability.GetActor(r.Context())
	if actor == "" {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "missing actor identity")
		return "", 0, false
	}
	teamID, ok := httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return "", 0, false
	}
	return actor, teamID, true
}

func (g *Guards) observe(component string, decision *authz.Decision) {
	if g.metrics != nil {
		g.metrics.ObserveDecision(component, decision.Allowed, string(decision.ErrorKind))
	}
}
