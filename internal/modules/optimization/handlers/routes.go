package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/optimize", h.HandleOptimize)
		r.Post("/heuristic", h.HandleHeuristic)
		r.Post("/optimal", h.HandleOptimal)
	})
}
