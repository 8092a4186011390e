// Package api exposes the policy decision service over HTTP.
//
// Two groups of routes share one router. The /v1/decisions endpoints are
// pure: a service posts a question ("may actor X write to team 5?") and gets
// a decision document back, allowed or denied, with no side effects. The
// team-scoped routes are the management surface: they run the same policy
// checks as middleware or inline guards and then perform the write.
//
// Denials are part of the API contract, not failures: a denied decision
// renders with the HTTP status its error kind maps to and the decision
// document as the body, so callers can surface the reason to end users.
package api
