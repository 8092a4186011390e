// Package authz implements the team role and permission half of the Rankforge
// policy-decision engine.
//
// # Overview
//
// Every mutating action on a team passes through one of two evaluators here:
// Evaluator answers "does the actor's role grant this permission", and
// MemberGuard answers "may the actor remove or re-role this specific member".
// Both return a uniform Decision record; denials are typed, never errors.
// Plan and usage gating lives in pkg/entitlement, which shares the Decision
// type.
//
// # Roles and Permissions
//
// Four roles form a strict hierarchy, OWNER > ADMIN > MEMBER > VIEWER, and
// each role's permission set is a superset of every lower role's:
//
//	RoleOwner   read, write, admin, owner
//	RoleAdmin   read, write, admin
//	RoleMember  read, write
//	RoleViewer  read
//
// The table lives in Catalog, built once at startup and read-only afterwards.
//
// # Member actions
//
// MemberGuard enforces the hierarchy rules (only owners manage owners and
// admins) and the last-owner invariant: a team may never be left without an
// OWNER. Role changes are additionally validated by IsValidRoleTransition;
// notably, OWNER can never be granted through a role edit.
//
// # Collaborators
//
// Both evaluators read through the TeamRepository interface. The Postgres
// implementation lives in pkg/teams; tests use lightweight fakes.
//
// # Related Packages
//
//   - pkg/entitlement: plan and usage gating
//   - pkg/teams: TeamRepository implementation
//   - pkg/middleware: HTTP guards built on these evaluators
package authz
