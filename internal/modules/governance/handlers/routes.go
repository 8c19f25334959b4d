package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers governance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/governance", func(r chi.Router) {
		r.Get("/weights", h.HandleGetWeights)
		r.Post("/score", h.HandleScore)
		r.Get("/assessment", h.HandleGetAssessment)

		r.Route("/datasets", func(r chi.Router) {
			r.Get("/", h.HandleListDatasets)
			r.Post("/score", h.HandleScoreDataset)
			r.Post("/correlation", h.HandleCorrelate)
		})
	})
}
