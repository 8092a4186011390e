package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rankforge/rankforge/pkg/httputil"
	"github.com/rankforge/rankforge/pkg/observability"
)

// getUsageSummary handles GET /v1/teams/{teamID}/usage
func (s *Server) getUsageSummary(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return
	}

	summary, err := s.entitlement.GetUsageSummary(r.Context(), teamID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to summarize usage")
		httputil.WriteInternalError(w, errors.New("failed to summarize usage"))
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"usage": summary})
}

// recordUsageRequest reports consumption of a metered feature
type recordUsageRequest struct {
	Amount int64 `json:"amount"`
}

// recordUsage handles POST /v1/teams/{teamID}/usage/{feature}. Recording is
// fire-and-forget: the response acknowledges receipt, not persistence.
func (s *Server) recordUsage(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParsePathInt64OrError(w, r, "teamID")
	if !ok {
		return
	}
	feature := mux.Vars(r)["feature"]
	if feature == "" {
		httputil.WriteValidationError(w, "missing feature")
		return
	}

	var req recordUsageRequest
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Amount < 0 {
		httputil.WriteValidationError(w, "amount must not be negative")
		return
	}

	s.recorder.Record(r.Context(), teamID, feature, req.Amount)
	w.WriteHeader(http.StatusAccepted)
}
