// Package middleware provides the HTTP middleware chain for the decision
// service: request identity, structured request logging, panic recovery, and
// route-level policy guards.
//
// # Middleware Ordering Requirements
//
// The guards read the actor identity and request logger from the request
// context, so ordering matters. Incorrect order causes guards to deny every
// request (no actor in context) or log without request correlation.
//
// REQUIRED ORDERING (outer to inner):
//  1. RequestID - assigns the request id and context logger
//  2. Recovery - catches handler panics
//  3. Logging - records request metrics and the access log line
//  4. Actor - extracts the caller identity set by the API gateway
//  5. Route guards - RequireTeamPermission, RequireFeature, EnforceUsageLimit
//
// Example:
//
//	router.Use(chain.RequestID, chain.Recovery, chain.Logging, chain.Actor)
//	router.Handle("/v1/teams/{teamID}/projects",
//	    guards.RequireTeamPermission(authz.PermissionWrite)(handler)).Methods("POST")
package middleware
