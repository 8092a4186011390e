// Package entitlement implements the subscription half of the policy-decision
// engine: plan catalogs, billing-aware plan resolution, boolean feature
// gating, inclusive usage ceilings, and best-effort usage metering.
//
// All verdicts come back as authz.Decision values. A team exceeding its quota
// or lacking a feature is a deny decision, never a Go error; errors are
// reserved for infrastructure faults (billing lookups, usage counter reads).
//
// Plan resolution falls back to the free tier whenever a team's billing
// status is anything other than active, so a lapsed subscription degrades
// gracefully instead of locking the team out.
package entitlement
