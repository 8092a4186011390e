package entitlement

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/observability"
)

// Guard is the subscription entitlement half of the policy-decision engine.
// It resolves a team's active plan (falling back to the free tier when
// billing is inactive or absent) and gates boolean feature access and numeric
// usage quotas. Stateless and safe for concurrent use.
type Guard struct {
	plans    PlanRepository
	billing  BillingStatusProvider
	usage    UsageSource
	metrics  *observability.Metrics
	fallback string
}

// NewGuard creates an entitlement guard. metrics may be nil.
func NewGuard(plans PlanRepository, billing BillingStatusProvider, usage UsageSource, metrics *observability.Metrics) *Guard {
	return &Guard{plans: plans, billing: billing, usage: usage, metrics: metrics, fallback: DefaultPlanID}
}

// WithFallbackPlan overrides the plan id used when billing is inactive or
// absent. The id must exist in the plan catalog.
func (g *Guard) WithFallbackPlan(planID string) *Guard {
	g.fallback = planID
	return g
}

// ResolvePlan returns the plan governing the team right now: the entitlement's
// plan when billing is active, the fallback tier otherwise. A plan id that the
// catalog cannot resolve is a deployment bug and yields a ConfigurationError
// decision.
func (g *Guard) ResolvePlan(ctx context.Context, teamID int64) (*Plan, *authz.Decision, error) {
	ent, err := g.billing.GetEntitlement(ctx, teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	planID := g.fallback
	if ent != nil && ent.Status == StatusActive {
		planID = ent.PlanID
	} else if g.metrics != nil {
		status := string(StatusNone)
		if ent != nil {
			status = string(ent.Status)
		}
		g.metrics.PlanFallbacksTotal.WithLabelValues(status).Inc()
	}

	plan, err := g.plans.ResolvePlan(ctx, planID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve plan %q: %w", planID, err)
	}
	if plan == nil {
		observability.FromContext(ctx).
			WithField("team_id", teamID).
			WithField("plan_id", planID).
			Error("Entitlement references a plan missing from the catalog")
		if g.metrics != nil {
			g.metrics.PlanResolutionErrors.Inc()
		}
		return nil, authz.Deny(authz.ErrConfigurationError,
			fmt.Sprintf("Plan %q is not configured", planID)), nil
	}
	return plan, nil, nil
}

// CheckFeatureAccess decides whether the team's plan includes a feature at
// all. No side effects.
func (g *Guard) CheckFeatureAccess(ctx context.Context, teamID int64, feature string) (*authz.Decision, error) {
	plan, denied, err := g.ResolvePlan(ctx, teamID)
	if err != nil || denied != nil {
		return denied, err
	}

	if !plan.HasFeature(feature) {
		return authz.Deny(authz.ErrUpgradeRequired, upgradeMessage(plan.ID, feature)), nil
	}
	return &authz.Decision{Allowed: true}, nil
}

// CheckUsageLimit decides whether the team may use a metered feature once
// more. When currentUsage is nil the counter is read from the usage source
// for the current billing period. Limits are inclusive ceilings: usage equal
// to the limit denies the next increment.
func (g *Guard) CheckUsageLimit(ctx context.Context, teamID int64, feature string, currentUsage *int64) (*authz.Decision, error) {
	plan, denied, err := g.ResolvePlan(ctx, teamID)
	if err != nil || denied != nil {
		return denied, err
	}

	limit, ok := plan.Limits[feature]
	if !ok {
		return authz.Deny(authz.ErrUpgradeRequired, upgradeMessage(plan.ID, feature)), nil
	}
	if limit.Unlimited {
		return &authz.Decision{Allowed: true, Unlimited: true}, nil
	}

	var current int64
	if currentUsage != nil {
		current = *currentUsage
	} else {
		current, err = g.usage.CurrentUsage(ctx, teamID, feature, BillingPeriod(time.Now()))
		if err != nil {
			return nil, fmt.Errorf("failed to read usage for %s: %w", feature, err)
		}
	}

	ceiling := limit.Ceiling
	decision := &authz.Decision{
		Allowed:      current < ceiling,
		CurrentUsage: &current,
		Limit:        &ceiling,
	}
	if !decision.Allowed {
		decision.ErrorKind = authz.ErrUpgradeRequired
		decision.HTTPStatus = authz.ErrUpgradeRequired.HTTPStatus()
		decision.Message = fmt.Sprintf("%s (%d of %d used this period)",
			upgradeMessage(plan.ID, feature), current, ceiling)
	}
	return decision, nil
}

// GetUsageSummary computes {current, limit, percentage} for every metered
// feature of the team's plan, for dashboard display. It enforces nothing and
// never denies; an unresolved plan surfaces as an error.
func (g *Guard) GetUsageSummary(ctx context.Context, teamID int64) ([]FeatureUsage, error) {
	plan, denied, err := g.ResolvePlan(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if denied != nil {
		return nil, fmt.Errorf("cannot summarize usage: %s", denied.Message)
	}

	features := make([]string, 0, len(plan.Limits))
	for feature := range plan.Limits {
		features = append(features, feature)
	}
	sort.Strings(features)

	period := BillingPeriod(time.Now())
	summary := make([]FeatureUsage, 0, len(features))
	for _, feature := range features {
		current, err := g.usage.CurrentUsage(ctx, teamID, feature, period)
		if err != nil {
			return nil, fmt.Errorf("failed to read usage for %s: %w", feature, err)
		}

		row := FeatureUsage{Feature: feature, Current: current}
		limit := plan.Limits[feature]
		if limit.Unlimited {
			row.Unlimited = true
		} else {
			ceiling := limit.Ceiling
			row.Limit = &ceiling
			if ceiling > 0 {
				pct := int(math.Round(float64(current) / float64(ceiling) * 100))
				row.Percentage = &pct
			}
		}
		summary = append(summary, row)
	}
	return summary, nil
}

// upgradeMessages maps (plan, feature) to a human-readable upgrade prompt
var upgradeMessages = map[string]map[string]string{
	PlanFree: {
		FeatureProjects:           "Free teams are limited to 3 projects. Upgrade to Starter for more.",
		FeatureKeywords:           "Free teams can track 25 keywords. Upgrade to Starter for more.",
		FeatureSiteAudits:         "Free teams get 1 site audit per month. Upgrade to Starter for more.",
		FeatureKeywordGapAnalysis: "Keyword gap analysis is available on Starter and above.",
		FeatureCompetitorTracking: "Competitor tracking is available on Starter and above.",
		FeatureAPIAccess:          "API access is available on Pro and above.",
		FeatureCustomReports:      "Custom reports are available on Pro and above.",
	},
	PlanStarter: {
		FeatureAPIAccess:     "API access is available on Pro and above.",
		FeatureCustomReports: "Custom reports are available on Pro and above.",
	},
}

func upgradeMessage(planID, feature string) string {
	if msgs, ok := upgradeMessages[planID]; ok {
		if msg, ok := msgs[feature]; ok {
			return msg
		}
	}
	return fmt.Sprintf("Your current plan does not include %s. Upgrade to continue.", feature)
}
