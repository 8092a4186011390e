package entitlement

import "context"

// Plan tier ids
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// DefaultPlanID is the fallback tier for teams whose billing is inactive or
// absent
const DefaultPlanID = PlanFree

// DefaultPlans returns the built-in plan definitions
func DefaultPlans() []*Plan {
	return []*Plan{
		{
			ID:   PlanFree,
			Name: "Free",
			Features: []string{
				FeatureProjects,
				FeatureKeywords,
				FeatureSiteAudits,
			},
			Limits: map[string]Limit{
				FeatureProjects:   Limited(3),
				FeatureKeywords:   Limited(25),
				FeatureSiteAudits: Limited(1),
			},
		},
		{
			ID:   PlanStarter,
			Name: "Starter",
			Features: []string{
				FeatureProjects,
				FeatureKeywords,
				FeatureSiteAudits,
				FeatureKeywordGapAnalysis,
				FeatureCompetitorTracking,
			},
			Limits: map[string]Limit{
				FeatureProjects:           Limited(10),
				FeatureKeywords:           Limited(250),
				FeatureSiteAudits:         Limited(10),
				FeatureKeywordGapAnalysis: Limited(5),
				FeatureCompetitorTracking: Limited(3),
			},
		},
		{
			ID:   PlanPro,
			Name: "Pro",
			Features: []string{
				FeatureProjects,
				FeatureKeywords,
				FeatureSiteAudits,
				FeatureKeywordGapAnalysis,
				FeatureCompetitorTracking,
				FeatureAPIAccess,
				FeatureCustomReports,
			},
			Limits: map[string]Limit{
				FeatureProjects:           Limited(50),
				FeatureKeywords:           Limited(2500),
				FeatureSiteAudits:         Unlimited(),
				FeatureKeywordGapAnalysis: Unlimited(),
				FeatureCompetitorTracking: Limited(25),
				FeatureCustomReports:      Limited(20),
			},
		},
		{
			ID:   PlanEnterprise,
			Name: "Enterprise",
			Features: []string{
				FeatureProjects,
				FeatureKeywords,
				FeatureSiteAudits,
				FeatureKeywordGapAnalysis,
				FeatureCompetitorTracking,
				FeatureAPIAccess,
				FeatureCustomReports,
			},
			Limits: map[string]Limit{
				FeatureProjects:           Unlimited(),
				FeatureKeywords:           Unlimited(),
				FeatureSiteAudits:         Unlimited(),
				FeatureKeywordGapAnalysis: Unlimited(),
				FeatureCompetitorTracking: Unlimited(),
				FeatureCustomReports:      Unlimited(),
			},
		},
	}
}

// Catalog is the immutable plan table, loaded once at process start and
// read-only afterwards. It implements PlanRepository.
type Catalog struct {
	plans map[string]*Plan
}

// NewCatalog creates a catalog from the built-in plans
func NewCatalog() *Catalog {
	return NewCatalogWithPlans(DefaultPlans())
}

// NewCatalogWithPlans creates a catalog from explicit plan definitions, so
// deployments can load tiers from configuration
func NewCatalogWithPlans(plans []*Plan) *Catalog {
	table := make(map[string]*Plan, len(plans))
	for _, p := range plans {
		table[p.ID] = p
	}
	return &Catalog{plans: table}
}

// ResolvePlan returns the plan for an id, or (nil, nil) when unknown
func (c *Catalog) ResolvePlan(_ context.Context, planID string) (*Plan, error) {
	return c.plans[planID], nil
}

// PlanIDs returns the ids of all known plans
func (c *Catalog) PlanIDs() []string {
	ids := make([]string, 0, len(c.plans))
	for id := range c.plans {
		ids = append(ids, id)
	}
	return ids
}
