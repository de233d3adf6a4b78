package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Scheduler string `json:"scheduler"`
	Projects  int    `json:"projects"`
	Store     string `json:"store,omitempty"`
}

// Health reports whether the project loops are running and the status store
// is reachable. Either one failing makes the server "degraded".
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Scheduler: "running",
		Projects:  h.projects.Len(),
	}
	if !h.projects.Running() {
		resp.Scheduler = "stopped"
		resp.Status = "degraded"
	}
	if h.store != nil {
		resp.Store = "ok"
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Warn("status store unreachable", "error", err)
			resp.Store = "unreachable"
			resp.Status = "degraded"
		}
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to encode response", err)
	}
}
