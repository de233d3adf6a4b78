package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListProjects returns the status of every project. Other build servers poll
// this endpoint from their project triggers.
func (h *Handlers) ListProjects(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(h.projects.Statuses())
}

// GetProject returns a single project's status.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "project")
	status, ok := h.projects.ProjectStatus(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, "project not found", nil)
		return
	}
	_ = json.NewEncoder(w).Encode(status)
}

type forceRequest struct {
	Source string `json:"source"`
}

// ForceBuild queues a forced build for the project's next tick. The body is
// optional and may name the source of the request.
func (h *Handlers) ForceBuild(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "project")

	var body forceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON", err)
			return
		}
	}

	if !h.projects.ForceBuild(name, body.Source) {
		h.writeError(w, http.StatusNotFound, "project not found", nil)
		return
	}
	h.logger.Info("forced build queued", "project", name, "source", body.Source)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"project": name, "status": "queued"})
}
