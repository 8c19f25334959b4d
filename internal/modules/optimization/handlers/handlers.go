// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"net/http"

	"github.com/aristath/govsim/internal/modules/advisory"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/render"
	"github.com/rs/zerolog"
)

// Handler handles portfolio optimization HTTP requests
type Handler struct {
	optimizer *optimization.Optimizer
	rules     advisory.RuleSet[*optimization.Report]
	log       zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(optimizer *optimization.Optimizer, log zerolog.Logger) *Handler {
	return &Handler{
		optimizer: optimizer,
		rules:     advisory.PortfolioRules(),
		log:       log.With().Str("handler", "optimization").Logger(),
	}
}

// PortfolioRequest is a portfolio with an optional explicit covariance matrix.
type PortfolioRequest struct {
	optimization.Portfolio
	Covariance [][]float64 `json:"covariance,omitempty"`
}

// ReportResponse is the body of an optimize response.
type ReportResponse struct {
	Report *optimization.Report `json:"report"`
	Advice []advisory.Advice    `json:"advice"`
}

// HandleOptimize handles POST /api/portfolio/optimize
// A QP failure still answers 200; the report carries the failure and no optimal weights.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	p, err := decodePortfolio(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	report, err := h.optimizer.Optimize(r.Context(), p)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	render.Data(w, r, http.StatusOK, ReportResponse{
		Report: report,
		Advice: h.rules.Evaluate(report),
	}, h.log)
}

// HandleHeuristic handles POST /api/portfolio/heuristic
func (h *Handler) HandleHeuristic(w http.ResponseWriter, r *http.Request) {
	p, err := decodePortfolio(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	result, err := h.optimizer.Heuristic(p)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}
	render.Data(w, r, http.StatusOK, result, h.log)
}

// HandleOptimal handles POST /api/portfolio/optimal
func (h *Handler) HandleOptimal(w http.ResponseWriter, r *http.Request) {
	p, err := decodePortfolio(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	result, err := h.optimizer.OptimizeQP(r.Context(), p)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}
	render.Data(w, r, http.StatusOK, result, h.log)
}

func decodePortfolio(r *http.Request) (optimization.Portfolio, error) {
	var req PortfolioRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		return optimization.Portfolio{}, err
	}

	p := req.Portfolio
	if len(req.Covariance) > 0 {
		cov, err := optimization.CovarianceFromRows(req.Covariance)
		if err != nil {
			return optimization.Portfolio{}, err
		}
		p.Covariance = cov
	}
	return p, nil
}
