package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/entitlement"
	"github.com/rankforge/rankforge/pkg/middleware"
	"github.com/rankforge/rankforge/pkg/observability"
	"github.com/rankforge/rankforge/pkg/teams"
)

// TeamStore is the persistence surface the member management handlers need
type TeamStore interface {
	authz.TeamRepository
	ListMembers(ctx context.Context, teamID int64) ([]*teams.Member, error)
	AddMember(ctx context.Context, teamID int64, userID string, role authz.Role) (*authz.Membership, error)
	UpdateMemberRole(ctx context.Context, membershipID int64, newRole authz.Role) error
	RemoveMember(ctx context.Context, membershipID int64) error
}

// Server is the policy decision API: decision endpoints for services asking
// "may this actor do this", and member management endpoints that enforce the
// same policies before writing.
type Server struct {
	router *mux.Router

	evaluator   *authz.Evaluator
	memberGuard *authz.MemberGuard
	entitlement *entitlement.Guard
	recorder    *entitlement.Recorder
	teams       TeamStore
	plans       *entitlement.Catalog

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Deps carries the server's collaborators
type Deps struct {
	Evaluator   *authz.Evaluator
	MemberGuard *authz.MemberGuard
	Entitlement *entitlement.Guard
	Recorder    *entitlement.Recorder
	Teams       TeamStore
	Plans       *entitlement.Catalog
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

// NewServer creates the API server and wires its routes
func NewServer(deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		evaluator:   deps.Evaluator,
		memberGuard: deps.MemberGuard,
		entitlement: deps.Entitlement,
		recorder:    deps.Recorder,
		teams:       deps.Teams,
		plans:       deps.Plans,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	chain := middleware.NewChain(s.logger, s.metrics)
	s.router.Use(chain.RequestID, chain.Recovery, chain.Logging, chain.Actor)

	guards := middleware.NewGuards(s.evaluator, s.entitlement, s.metrics)

	// Decision endpoints: pure evaluation, no side effects
	s.router.HandleFunc("/v1/decisions/team-permission", s.decideTeamPermission).Methods("POST")
	s.router.HandleFunc("/v1/decisions/member-action", s.decideMemberAction).Methods("POST")
	s.router.HandleFunc("/v1/decisions/feature-access", s.decideFeatureAccess).Methods("POST")
	s.router.HandleFunc("/v1/decisions/usage-limit", s.decideUsageLimit).Methods("POST")

	// Plan catalog
	s.router.HandleFunc("/v1/plans", s.listPlans).Methods("GET")
	s.router.Handle("/v1/teams/{teamID}/plan",
		guards.RequireTeamPermission(authz.PermissionRead)(http.HandlerFunc(s.getTeamPlan))).Methods("GET")

	// Member management: policy check then write
	s.router.Handle("/v1/teams/{teamID}/members",
		guards.RequireTeamPermission(authz.PermissionRead)(http.HandlerFunc(s.listMembers))).Methods("GET")
	s.router.Handle("/v1/teams/{teamID}/members",
		guards.RequireTeamPermission(authz.PermissionAdmin)(http.HandlerFunc(s.addMember))).Methods("POST")
	s.router.HandleFunc("/v1/teams/{teamID}/members/{memberID}", s.updateMemberRole).Methods("PATCH")
	s.router.HandleFunc("/v1/teams/{teamID}/members/{memberID}", s.removeMember).Methods("DELETE")

	// Usage
	s.router.Handle("/v1/teams/{teamID}/usage",
		guards.RequireTeamPermission(authz.PermissionRead)(http.HandlerFunc(s.getUsageSummary))).Methods("GET")
	s.router.Handle("/v1/teams/{teamID}/usage/{feature}",
		guards.RequireTeamPermission(authz.PermissionWrite)(http.HandlerFunc(s.recordUsage))).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router for transport wrapping
func (s *Server) Router() *mux.Router {
	return s.router
}
