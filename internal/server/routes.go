package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/dwsmith1983/buildwatch/internal/server/handlers"
)

func (s *Server) registerRoutes(r chi.Router) {
	h := handlers.New(s.projects, s.store)
	h.SetLogger(s.logger)

	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", h.Health)

		// Projects
		r.Get("/projects", h.ListProjects)
		r.Get("/projects/{project}", h.GetProject)
		r.Post("/projects/{project}/force", h.ForceBuild)
	})
}
