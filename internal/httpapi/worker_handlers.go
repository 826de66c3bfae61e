package httpapi

import (
	"net/http"

	"rostergate.org/internal/queue"
)

type queueSummaryResponse struct {
	PendingReady  int  `json:"pending_ready"`
	NextRunAfter  any  `json:"next_run_after"`
	PendingTotal  int  `json:"pending_total"`
	WakeUpdatedAt any  `json:"wake_updated_at"`
	ShouldWake    bool `json:"should_wake"`
}

type workerStatusResponse struct {
	Now    int64                           `json:"now"`
	Queues map[string]queueSummaryResponse `json:"queues"`
}

func (a *API) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.queues == nil {
		writeError(w, r, http.StatusServiceUnavailable, "queue store unavailable")
		return
	}
	st, err := queue.BuildStatus(r.Context(), a.queues, a.categories, a.clock())
	if err != nil {
		handleStoreError(w, r, "worker_status", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerStatus(st))
}

func toWorkerStatus(st queue.Status) workerStatusResponse {
	resp := workerStatusResponse{
		Now:    st.Now.UnixMilli(),
		Queues: make(map[string]queueSummaryResponse, len(st.Queues)),
	}
	for category, s := range st.Queues {
		resp.Queues[category] = queueSummaryResponse{
			PendingReady:  s.PendingReady,
			NextRunAfter:  unixMillis(s.NextRunAfter),
			PendingTotal:  s.PendingTotal,
			WakeUpdatedAt: unixMillis(s.WakeUpdatedAt),
			ShouldWake:    s.ShouldWake(),
		}
	}
	return resp
}
