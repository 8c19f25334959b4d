// Package handlers provides HTTP handlers for governance-weighted capital allocation.
package handlers

import (
	"net/http"

	"github.com/aristath/govsim/internal/modules/advisory"
	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/aristath/govsim/internal/render"
	"github.com/rs/zerolog"
)

// Handler handles allocation HTTP requests
type Handler struct {
	allocator *allocation.Allocator
	model     *shock.Model
	rules     advisory.RuleSet[*allocation.Plan]
	log       zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(allocator *allocation.Allocator, model *shock.Model, log zerolog.Logger) *Handler {
	return &Handler{
		allocator: allocator,
		model:     model,
		rules:     advisory.AllocationRules(),
		log:       log.With().Str("handler", "allocation").Logger(),
	}
}

// PlanRequest is the body of a plan request. When ShockType is set its coefficient replaces
// Params.ShockCoefficient.
type PlanRequest struct {
	Params    allocation.Params      `json:"params"`
	ShockType shock.Type             `json:"shock_type,omitempty"`
	Units     []allocation.UnitInput `json:"units"`
}

// PlanResponse is the body of a plan response.
type PlanResponse struct {
	Plan   *allocation.Plan  `json:"plan"`
	Advice []advisory.Advice `json:"advice"`
}

// HandleCreatePlan handles POST /api/allocation/plans
// Plans are computed fresh and never stored.
func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	params, err := allocation.ResolveShock(req.Params, req.ShockType, h.model.Impacts())
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	plan, err := h.allocator.Allocate(params, req.Units)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	h.log.Info().
		Str("plan_id", plan.ID).
		Int("units", len(plan.Units)).
		Int("eligible", plan.EligibleCount).
		Msg("Allocation plan computed")

	render.Data(w, r, http.StatusOK, PlanResponse{
		Plan:   plan,
		Advice: h.rules.Evaluate(plan),
	}, h.log)
}
