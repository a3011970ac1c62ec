package http

import (
	"net/http"
)

// handleDashboard serves the aggregates for ?month= or ?start=&end=,
// defaulting to the current month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := authUserID(r)
	start, end, err := ParseRange(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.svc.Stats.Dashboard(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newStatsResponse(stats))
}
