package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge/pkg/authz"
)

type fakeBilling struct {
	ent *Entitlement
	err error
}

func (f *fakeBilling) GetEntitlement(_ context.Context, _ int64) (*Entitlement, error) {
	return f.ent, f.err
}

type fakeUsage struct {
	counts map[string]int64
	err    error
}

func (f *fakeUsage) CurrentUsage(_ context.Context, _ int64, feature, _ string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[feature], nil
}

func activeBilling(planID string) *fakeBilling {
	return &fakeBilling{ent: &Entitlement{TeamID: 1, PlanID: planID, Status: StatusActive}}
}

func newTestGuard(billing BillingStatusProvider, usage UsageSource) *Guard {
	return NewGuard(NewCatalog(), billing, usage, nil)
}

func int64Ptr(n int64) *int64 { return &n }

func TestResolvePlan_ActiveSubscription(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanPro), &fakeUsage{})

	plan, denied, err := guard.ResolvePlan(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, denied)
	assert.Equal(t, PlanPro, plan.ID)
}

func TestResolvePlan_PastDueFallsBackToFree(t *testing.T) {
	billing := &fakeBilling{ent: &Entitlement{TeamID: 1, PlanID: PlanPro, Status: StatusPastDue}}
	guard := newTestGuard(billing, &fakeUsage{})

	plan, denied, err := guard.ResolvePlan(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, denied)
	assert.Equal(t, PlanFree, plan.ID)
}

func TestResolvePlan_CanceledFallsBackToFree(t *testing.T) {
	billing := &fakeBilling{ent: &Entitlement{TeamID: 1, PlanID: PlanEnterprise, Status: StatusCanceled}}
	guard := newTestGuard(billing, &fakeUsage{})

	plan, _, err := guard.ResolvePlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, PlanFree, plan.ID)
}

func TestResolvePlan_NoBillingRecordFallsBackToFree(t *testing.T) {
	guard := newTestGuard(&fakeBilling{}, &fakeUsage{})

	plan, _, err := guard.ResolvePlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, PlanFree, plan.ID)
}

func TestResolvePlan_CustomFallbackPlan(t *testing.T) {
	guard := newTestGuard(&fakeBilling{}, &fakeUsage{}).WithFallbackPlan(PlanStarter)

	plan, _, err := guard.ResolvePlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, PlanStarter, plan.ID)
}

func TestResolvePlan_UnknownPlanIsConfigurationError(t *testing.T) {
	guard := newTestGuard(activeBilling("legacy-gold"), &fakeUsage{})

	plan, denied, err := guard.ResolvePlan(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, plan)
	require.NotNil(t, denied)
	assert.False(t, denied.Allowed)
	assert.Equal(t, authz.ErrConfigurationError, denied.ErrorKind)
	assert.Equal(t, 500, denied.HTTPStatus)
}

func TestResolvePlan_BillingErrorPropagates(t *testing.T) {
	guard := newTestGuard(&fakeBilling{err: errors.New("connection refused")}, &fakeUsage{})

	_, _, err := guard.ResolvePlan(context.Background(), 1)
	assert.Error(t, err)
}

func TestCheckFeatureAccess_Included(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanStarter), &fakeUsage{})

	decision, err := guard.CheckFeatureAccess(context.Background(), 1, FeatureKeywordGapAnalysis)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckFeatureAccess_NotIncluded(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanFree), &fakeUsage{})

	decision, err := guard.CheckFeatureAccess(context.Background(), 1, FeatureAPIAccess)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ErrUpgradeRequired, decision.ErrorKind)
	assert.Equal(t, 403, decision.HTTPStatus)
	assert.Contains(t, decision.Message, "Pro")
}

func TestCheckFeatureAccess_PastDueLosesPaidFeatures(t *testing.T) {
	billing := &fakeBilling{ent: &Entitlement{TeamID: 1, PlanID: PlanPro, Status: StatusPastDue}}
	guard := newTestGuard(billing, &fakeUsage{})

	decision, err := guard.CheckFeatureAccess(context.Background(), 1, FeatureAPIAccess)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ErrUpgradeRequired, decision.ErrorKind)
}

func TestCheckUsageLimit_UnderCeiling(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanFree), &fakeUsage{})

	decision, err := guard.CheckUsageLimit(context.Background(), 1, FeatureProjects, int64Ptr(2))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(2), *decision.CurrentUsage)
	assert.Equal(t, int64(3), *decision.Limit)
}

func TestCheckUsageLimit_AtCeilingDenies(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanFree), &fakeUsage{})

	decision, err := guard.CheckUsageLimit(context.Background(), 1, FeatureProjects, int64Ptr(3))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ErrUpgradeRequired, decision.ErrorKind)
	assert.Equal(t, int64(3), *decision.CurrentUsage)
	assert.Equal(t, int64(3), *decision.Limit)
	assert.Contains(t, decision.Message, "3 of 3 used this period")
}

func TestCheckUsageLimit_OverCeilingDenies(t *testing.T) {
	// Counters can legitimately exceed the ceiling after a downgrade.
	guard := newTestGuard(activeBilling(PlanFree), &fakeUsage{})

	decision, err := guard.CheckUsageLimit(context.Background(), 1, FeatureProjects, int64Ptr(7))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestCheckUsageLimit_UnlimitedAlwaysAllows(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanPro), &fakeUsage{})

	decision, err := guard.CheckUsageLimit(context.Background(), 1, FeatureKeywordGapAnalysis, int64Ptr(1000000))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, decision.Unlimited)
	assert.Nil(t, decision.CurrentUsage)
}

func TestCheckUsageLimit_FeatureNotInPlan(t *testing.T) {
	guard := newTestGuard(activeBilling(PlanFree), &fakeUsage{})

	decision, err := guard.CheckUsageLimit(context.Background(), 1, FeatureCustomReports, int64Ptr(0))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, authz.ErrUpgradeRequired, decision.ErrorKind)
}

func TestCheckUsageLimit_ReadsCounterWhenUsageNotProvided(t *testing.T) {
	usage := &fakeUsage{counts: map[string]int64{FeatureKeywords: 25}}
	guard := newTestGuard(activeBilling(PlanFree), usage)

	decision, err := guard.CheckUsageLimit(context.Background(), 1, FeatureKeywords, nil)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(25), *decision.CurrentUsage)
}

func TestCheckUsageLimit_UsageSourceErrorPropagates(t *testing.T) {
	usage := &fakeUsage{err: errors.New("redis down")}
	guard := newTestGuard(activeBilling(PlanFree), usage)

	_, err := guard.CheckUsageLimit(context.Background(), 1, FeatureKeywords, nil)
	assert.Error(t, err)
}

func TestGetUsageSummary(t *testing.T) {
	usage := &fakeUsage{counts: map[string]int64{
		FeatureProjects:   2,
		FeatureKeywords:   10,
		FeatureSiteAudits: 1,
	}}
	guard := newTestGuard(activeBilling(PlanFree), usage)

	summary, err := guard.GetUsageSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summary, 3)

	// Rows come back sorted by feature key.
	assert.Equal(t, FeatureKeywords, summary[0].Feature)
	assert.Equal(t, int64(10), summary[0].Current)
	assert.Equal(t, int64(25), *summary[0].Limit)
	assert.Equal(t, 40, *summary[0].Percentage)

	assert.Equal(t, FeatureProjects, summary[1].Feature)
	assert.Equal(t, 67, *summary[1].Percentage)

	assert.Equal(t, FeatureSiteAudits, summary[2].Feature)
	assert.Equal(t, 100, *summary[2].Percentage)
}

func TestGetUsageSummary_UnlimitedFeaturesHaveNoPercentage(t *testing.T) {
	usage := &fakeUsage{counts: map[string]int64{FeatureSiteAudits: 42}}
	guard := newTestGuard(activeBilling(PlanEnterprise), usage)

	summary, err := guard.GetUsageSummary(context.Background(), 1)
	require.NoError(t, err)

	for _, row := range summary {
		assert.True(t, row.Unlimited, row.Feature)
		assert.Nil(t, row.Limit, row.Feature)
		assert.Nil(t, row.Percentage, row.Feature)
	}
}
