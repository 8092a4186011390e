// Package teams persists workspaces and memberships in postgres. It backs
// the permission evaluators as their membership source and carries the member
// write operations the management API performs after a policy check passes.
//
// The write paths re-validate the last-owner invariant inside the SQL
// statement itself, so two concurrent owner departures cannot race past the
// application-level check and leave a team ownerless.
package teams
