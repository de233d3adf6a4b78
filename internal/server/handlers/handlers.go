// Package handlers implements HTTP request handlers for the buildwatch API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dwsmith1983/buildwatch/pkg/types"
)

// Projects is the view of the scheduler the API needs.
type Projects interface {
	Statuses() []types.ProjectStatus
	ProjectStatus(project string) (types.ProjectStatus, bool)
	ForceBuild(project, source string) bool
	Running() bool
	Len() int
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	projects Projects
	store    Pinger
	logger   *slog.Logger
}

// New creates a new Handlers instance. store may be nil.
func New(projects Projects, store Pinger) *Handlers {
	return &Handlers{
		projects: projects,
		store:    store,
		logger:   slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// writeError logs the internal error and returns a sanitized JSON error to the client.
func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		h.logger.Error(msg, "error", err, "status", status)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
