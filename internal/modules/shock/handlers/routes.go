package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers shock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/shocks", func(r chi.Router) {
		r.Get("/types", h.HandleGetTypes)
		r.Post("/simulate", h.HandleSimulate)
		r.Post("/path", h.HandlePath)
	})
}
