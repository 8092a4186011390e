package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rankforge/rankforge/pkg/authz"
	"github.com/rankforge/rankforge/pkg/httputil"
	"github.com/rankforge/rankforge/pkg/observability"
	"github.com/rankforge/rankforge/pkg/teams"
)

// listMembers handles GET /v1/teams/{teamID}/members
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return
	}

	members, err := s.teams.ListMembers(r.Context(), teamID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to list members")
		httputil.WriteInternalError(w, errors.New("failed to list members"))
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"members": members})
}

// addMemberRequest adds a user to a team. The route guard has already
// verified the actor holds admin permission.
type addMemberRequest struct {
	UserID string     `json:"user_id"`
	Role   authz.Role `json:"role"`
}

// addMember handles POST /v1/teams/{teamID}/members
func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return
	}
	var req addMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserID, "user_id") {
		return
	}
	if !req.Role.Valid() {
		httputil.WriteValidationError(w, fmt.Sprintf("unknown role: %q", req.Role))
		return
	}

	// The role being granted must be one the actor may assign. Nobody grants
	// OWNER this way; ownership moves through a dedicated transfer flow.
	actor := observability.GetActor(r.Context())
	actorMembership, err := s.teams.FindMembership(r.Context(), teamID, actor)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to resolve actor membership")
		httputil.WriteInternalError(w, errors.New("failed to resolve actor"))
		return
	}
	if actorMembership == nil || !roleAssignable(actorMembership.Role, req.Role) {
		decision := authz.Deny(authz.ErrInvalidRoleTransition,
			fmt.Sprintf("You cannot grant the %s role", req.Role))
		s.observeOutcome("member_action", decision)
		httputil.WriteDecision(w, decision)
		return
	}

	membership, err := s.teams.AddMember(r.Context(), teamID, req.UserID, req.Role)
	if err != nil {
		if errors.Is(err, teams.ErrAlreadyMember) {
			httputil.WriteErrorMessage(w, http.StatusConflict, err.Error())
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("Failed to add member")
		httputil.WriteInternalError(w, errors.New("failed to add member"))
		return
	}

	s.evaluator.InvalidateActor(teamID, req.UserID)
	httputil.WriteCreated(w, membership)
}

// updateMemberRoleRequest changes a member's role
type updateMemberRoleRequest struct {
	Role authz.Role `json:"role"`
}

// updateMemberRole handles PATCH /v1/teams/{teamID}/members/{memberID}.
// The member-action guard carries the full policy (role hierarchy, transition
// rules, last-owner protection), so the route has no separate permission
// middleware.
func (s *Server) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	teamID, memberID, actor, ok := s.memberActionSubject(w, r)
	if !ok {
		return
	}
	var req updateMemberRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Role.Valid() {
		httputil.WriteValidationError(w, fmt.Sprintf("unknown role: %q", req.Role))
		return
	}

	start := time.Now()
	decision, err := s.memberGuard.CheckMemberAction(r.Context(), authz.MemberActionCheck{
		ActorID:  actor,
		TeamID:   teamID,
		TargetID: memberID,
		Action:   authz.MemberActionUpdateRole,
		NewRole:  req.Role,
	})
	if err != nil {
		s.writeEvaluationError(w, r, "member action", err)
		return
	}
	s.observe("member_action", decision, start)
	if !decision.Allowed {
		httputil.WriteDecision(w, decision)
		return
	}

	if err := s.teams.UpdateMemberRole(r.Context(), memberID, req.Role); err != nil {
		s.writeMemberWriteError(w, r, err)
		return
	}

	s.invalidateMember(r, teamID, memberID)
	httputil.WriteNoContent(w)
}

// removeMember handles DELETE /v1/teams/{teamID}/members/{memberID}
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	teamID, memberID, actor, ok := s.memberActionSubject(w, r)
	if !ok {
		return
	}

	start := time.Now()
	decision, err := s.memberGuard.CheckMemberAction(r.Context(), authz.MemberActionCheck{
		ActorID:  actor,
		TeamID:   teamID,
		TargetID: memberID,
		Action:   authz.MemberActionRemove,
	})
	if err != nil {
		s.writeEvaluationError(w, r, "member action", err)
		return
	}
	s.observe("member_action", decision, start)
	if !decision.Allowed {
		httputil.WriteDecision(w, decision)
		return
	}

	// Capture the target identity before the row disappears.
	target, err := s.teams.FindMembershipByID(r.Context(), memberID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to resolve target membership")
		httputil.WriteInternalError(w, errors.New("failed to resolve member"))
		return
	}

	if err := s.teams.RemoveMember(r.Context(), memberID); err != nil {
		s.writeMemberWriteError(w, r, err)
		return
	}

	if target != nil {
		s.evaluator.InvalidateActor(teamID, target.UserID)
	}
	httputil.WriteNoContent(w)
}

// memberActionSubject extracts the team, target member, and actor from the
// request, writing the error response when any is missing
func (s *Server) memberActionSubject(w http.ResponseWriter, r *http.Request) (teamID, memberID int64, actor string, ok bool) {
	actor = observability.GetActor(r.Context())
	if actor == "" {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "missing actor identity")
		return 0, 0, "", false
	}
	teamID, ok = httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return 0, 0, "", false
	}
	memberID, ok = httputil.ParsePathInt64OrError(w, r, "memberID")
	if !ok {
		return 0, 0, "", false
	}
	return teamID, memberID, actor, true
}

// writeMemberWriteError maps repository write failures onto responses. The
// last-owner guard firing at the SQL level means a concurrent change beat the
// policy check; it renders the same denial the check itself would have.
func (s *Server) writeMemberWriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, teams.ErrLastOwner):
		decision := authz.Deny(authz.ErrLastOwnerProtection,
			"Cannot remove the last owner. Transfer ownership first.")
		s.observeOutcome("member_action", decision)
		httputil.WriteDecision(w, decision)
	case errors.Is(err, teams.ErrMemberNotFound):
		httputil.WriteNotFoundError(w, "member not found")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Member write failed")
		httputil.WriteInternalError(w, errors.New("member write failed"))
	}
}

func (s *Server) invalidateMember(r *http.Request, teamID, memberID int64) {
	target, err := s.teams.FindMembershipByID(r.Context(), memberID)
	if err != nil || target == nil {
		return
	}
	s.evaluator.InvalidateActor(teamID, target.UserID)
}

func roleAssignable(acting, granted authz.Role) bool {
	for _, role := range authz.AssignableRoles(acting) {
		if role == granted {
			return true
		}
	}
	return false
}
