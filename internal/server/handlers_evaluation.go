package server

import (
	"net/http"
)

// HandleEvaluationRun handles POST /v1/evaluation/run.
//
// Query parameters: k (ranking cutoff), max_users. Synchronous; runs
// can take a while with many qualifying users, so callers should set
// generous timeouts.
func (h *Handlers) HandleEvaluationRun(w http.ResponseWriter, r *http.Request) {
	if h.evaluator == nil {
		writeError(w, r, http.StatusServiceUnavailable, "evaluation not configured")
		return
	}

	k, err := queryInt(r, "k", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	maxUsers, err := queryInt(r, "max_users", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.evaluator.Run(r.Context(), k, maxUsers)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}
