// Package handlers provides HTTP handlers for shock adjustment simulation.
package handlers

import (
	"net/http"

	"github.com/aristath/govsim/internal/modules/advisory"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/aristath/govsim/internal/render"
	"github.com/aristath/govsim/internal/session"
	"github.com/rs/zerolog"
)

// Handler handles shock HTTP requests
type Handler struct {
	model    *shock.Model
	sessions *session.Store
	rules    advisory.RuleSet[*shock.Outcome]
	log      zerolog.Logger
}

// NewHandler creates a new shock handler
func NewHandler(model *shock.Model, sessions *session.Store, log zerolog.Logger) *Handler {
	return &Handler{
		model:    model,
		sessions: sessions,
		rules:    advisory.ShockRules(model.Impacts().Types()),
		log:      log.With().Str("handler", "shock").Logger(),
	}
}

// SimulateRequest is the body of a simulation request. GovernanceScore falls back to the
// caller's session when omitted.
type SimulateRequest struct {
	Capital         float64    `json:"capital"`
	GovernanceScore *float64   `json:"governance_score,omitempty"`
	ShockType       shock.Type `json:"shock_type"`
}

// TypeInfo describes one supported shock type.
type TypeInfo struct {
	Type        shock.Type `json:"type"`
	Coefficient float64    `json:"coefficient"`
}

// SimulateResponse is the body of a simulation response.
type SimulateResponse struct {
	Outcome *shock.Outcome    `json:"outcome"`
	Advice  []advisory.Advice `json:"advice"`
}

// PathResponse carries an outcome and its projected capital by day.
type PathResponse struct {
	Outcome *shock.Outcome    `json:"outcome"`
	Path    []shock.PathPoint `json:"path"`
}

// HandleGetTypes handles GET /api/shocks/types
func (h *Handler) HandleGetTypes(w http.ResponseWriter, r *http.Request) {
	impacts := h.model.Impacts()
	types := make([]TypeInfo, 0, len(impacts))
	for _, st := range impacts.Types() {
		types = append(types, TypeInfo{Type: st, Coefficient: impacts[st]})
	}
	render.Data(w, r, http.StatusOK, types, h.log)
}

// HandleSimulate handles POST /api/shocks/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.simulate(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	render.Data(w, r, http.StatusOK, SimulateResponse{
		Outcome: outcome,
		Advice:  h.rules.Evaluate(outcome),
	}, h.log)
}

// HandlePath handles POST /api/shocks/path
// Takes the same body as HandleSimulate and adds the degradation path for the outcome.
// Paths longer than the configured day limit are rejected.
func (h *Handler) HandlePath(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.simulate(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	path, err := h.model.Path(outcome.Capital, outcome.DurationDays)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	render.Data(w, r, http.StatusOK, PathResponse{Outcome: outcome, Path: path}, h.log)
}

func (h *Handler) simulate(r *http.Request) (*shock.Outcome, error) {
	var req SimulateRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		return nil, err
	}

	score, err := h.sessions.Get(r.Header.Get(session.Header)).ResolveScore(req.GovernanceScore)
	if err != nil {
		return nil, err
	}
	return h.model.Simulate(req.Capital, score, req.ShockType)
}
