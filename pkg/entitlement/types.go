package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Feature keys gated by subscription plans
const (
	FeatureProjects           = "projects"
	FeatureKeywords           = "keywords"
	FeatureSiteAudits         = "siteAudits"
	FeatureKeywordGapAnalysis = "keywordGapAnalysis"
	FeatureCompetitorTracking = "competitorTracking"
	FeatureAPIAccess          = "apiAccess"
	FeatureCustomReports      = "customReports"
)

// Limit is a per-feature usage ceiling: either unlimited or an inclusive
// numeric ceiling. A feature absent from a plan's limits map is disabled.
type Limit struct {
	Unlimited bool  `json:"-"`
	Ceiling   int64 `json:"-"`
}

// Limited builds a numeric limit
func Limited(ceiling int64) Limit {
	return Limit{Ceiling: ceiling}
}

// Unlimited builds a boundless limit
func Unlimited() Limit {
	return Limit{Unlimited: true}
}

// MarshalJSON renders a limit as `true` (unlimited) or a number, matching the
// wire shape dashboards expect
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unlimited {
		return json.Marshal(true)
	}
	return json.Marshal(l.Ceiling)
}

// UnmarshalJSON accepts either a boolean or a number
func (l *Limit) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			return fmt.Errorf("limit cannot be false; omit the key to disable the feature")
		}
		*l = Unlimited()
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("limit must be true or a number: %w", err)
	}
	*l = Limited(n)
	return nil
}

// Plan represents a subscription tier: which features it enables and at what
// usage ceilings
type Plan struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Features []string         `json:"features"`
	Limits   map[string]Limit `json:"limits"`
}

// HasFeature reports whether the plan's feature set includes the key
func (p *Plan) HasFeature(key string) bool {
	for _, f := range p.Features {
		if f == key {
			return true
		}
	}
	return false
}

// Status represents the billing state of a team's entitlement
type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusNone     Status = "none"
)

// Entitlement binds a team to a plan plus its current billing status. Only
// active entitlements use PlanID; everything else resolves to the fallback
// plan.
type Entitlement struct {
	TeamID             int64      `json:"team_id"`
	PlanID             string     `json:"plan_id"`
	Status             Status     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

// FeatureUsage is one row of a team's usage summary, for dashboard display
type FeatureUsage struct {
	Feature    string `json:"feature"`
	Current    int64  `json:"current"`
	Limit      *int64 `json:"limit,omitempty"`
	Unlimited  bool   `json:"unlimited,omitempty"`
	Percentage *int   `json:"percentage,omitempty"`
}

// PlanRepository resolves plan ids to plan definitions. Misses return
// (nil, nil).
type PlanRepository interface {
	ResolvePlan(ctx context.Context, planID string) (*Plan, error)
}

// BillingStatusProvider reports a team's current entitlement. Teams with no
// billing record return (nil, nil).
type BillingStatusProvider interface {
	GetEntitlement(ctx context.Context, teamID int64) (*Entitlement, error)
}

// UsageSource reads a team's usage counter for one feature in one billing
// period. The core never owns the counter lifecycle.
type UsageSource interface {
	CurrentUsage(ctx context.Context, teamID int64, feature, period string) (int64, error)
}

// UsageSink persists usage deltas for metering
type UsageSink interface {
	AddUsage(ctx context.Context, teamID int64, feature, period string, amount int64) error
}

// UsageStore combines reading and writing usage counters
type UsageStore interface {
	UsageSource
	UsageSink
}

// BillingPeriod returns the identifier of the billing period containing t.
// Periods are calendar months in UTC.
func BillingPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}
