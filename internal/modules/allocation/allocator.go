// Package allocation distributes capital across organizational units in proportion to their
// governance quality, subject to an eligibility gate and a per-unit cap.
package allocation

import (
	"fmt"
	"iter"
	"math"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/sensitivity"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Defaults for reports and the coefficient sweep.
const (
	DefaultConcentrationThreshold = 0.25
	DefaultSweepStart             = 0.1
	DefaultSweepEnd               = 1.0
	DefaultSweepPoints            = 10
)

// Params are the global parameters of a capital allocation plan.
type Params struct {
	TotalCapital     float64 `json:"total_capital"`
	ShockCoefficient float64 `json:"shock_coefficient"`
	MinGovernance    float64 `json:"min_governance"`
	// MaxAlloc is the per-unit ceiling in currency. Zero means no cap.
	MaxAlloc float64 `json:"max_alloc"`
}

// ResolveShock sets the shock coefficient of params from a shock type. An empty type leaves
// params unchanged; a type given alongside an explicit coefficient is rejected.
func ResolveShock(params Params, st shock.Type, impacts shock.ImpactTable) (Params, error) {
	if st == "" {
		return params, nil
	}
	if params.ShockCoefficient != 0 {
		return params, domain.NewValidationError("shock_type", "give either shock_type or shock_coefficient, not both")
	}
	coefficient, err := impacts.Coefficient(st)
	if err != nil {
		return params, err
	}
	params.ShockCoefficient = coefficient
	return params, nil
}

// UnitInput identifies a unit and its governance score.
type UnitInput struct {
	ID              string  `json:"id"`
	GovernanceScore float64 `json:"governance_score"`
}

// Unit is one allocated unit of a plan.
type Unit struct {
	ID               string  `json:"id"`
	GovernanceScore  float64 `json:"governance_score"`
	Eligible         bool    `json:"eligible"`
	EffectiveWeight  float64 `json:"effective_weight"`
	AllocatedCapital float64 `json:"allocated_capital"`
	ShareOfTotalPct  float64 `json:"share_of_total_pct"`
	DurationDays     float64 `json:"duration_days"`
}

// Plan is a computed capital allocation. It is built fresh for every request.
type Plan struct {
	ID                 string              `json:"id"`
	Params             Params              `json:"params"`
	Units              []Unit              `json:"units"`
	AllocatedCapital   float64             `json:"allocated_capital"`
	UnallocatedCapital float64             `json:"unallocated_capital"`
	EligibleCount      int                 `json:"eligible_count"`
	EligibleFraction   float64             `json:"eligible_fraction"`
	TotalDurationDays  float64             `json:"total_duration_days"`
	SlowestUnit        string              `json:"slowest_unit"`
	SlowestDuration    float64             `json:"slowest_duration_days"`
	ConcentratedUnits  []string            `json:"concentrated_units"`
	NoEligibleUnits    bool                `json:"no_eligible_units"`
	Sensitivity        []sensitivity.Point `json:"sensitivity"`
}

// Options configure report thresholds and the sensitivity sweep.
type Options struct {
	ConcentrationThreshold float64
	SweepStart             float64
	SweepEnd               float64
	SweepPoints            int
}

// DefaultOptions returns the standard report settings.
func DefaultOptions() Options {
	return Options{
		ConcentrationThreshold: DefaultConcentrationThreshold,
		SweepStart:             DefaultSweepStart,
		SweepEnd:               DefaultSweepEnd,
		SweepPoints:            DefaultSweepPoints,
	}
}

// Allocator computes capital allocation plans. It keeps no state between calls.
type Allocator struct {
	opts  Options
	sweep []float64
	log   zerolog.Logger
}

// NewAllocator creates a new capital allocator.
func NewAllocator(opts Options, log zerolog.Logger) (*Allocator, error) {
	if opts.ConcentrationThreshold <= 0 || opts.ConcentrationThreshold > 1 {
		return nil, fmt.Errorf("concentration threshold must be in (0, 1], got %g", opts.ConcentrationThreshold)
	}
	if opts.SweepPoints < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", opts.SweepPoints)
	}
	return &Allocator{
		opts:  opts,
		sweep: sensitivity.Linspace(opts.SweepStart, opts.SweepEnd, opts.SweepPoints),
		log:   log.With().Str("component", "capital_allocator").Logger(),
	}, nil
}

func validate(params Params, units []UnitInput) error {
	if len(units) == 0 {
		return domain.NewValidationError("units", "at least one unit is required")
	}
	if err := domain.CheckNonNegative("total_capital", params.TotalCapital); err != nil {
		return err
	}
	if err := domain.CheckNonNegative("shock_coefficient", params.ShockCoefficient); err != nil {
		return err
	}
	if err := domain.CheckRange("min_governance", params.MinGovernance, governance.MinScore, governance.MaxScore); err != nil {
		return err
	}
	if err := domain.CheckNonNegative("max_alloc", params.MaxAlloc); err != nil {
		return err
	}

	seen := make(map[string]bool, len(units))
	for i, u := range units {
		field := fmt.Sprintf("units[%d].governance_score", i)
		if err := domain.CheckRange(field, u.GovernanceScore, governance.MinScore, governance.MaxScore); err != nil {
			return err
		}
		if u.ID != "" {
			if seen[u.ID] {
				return domain.NewValidationError(fmt.Sprintf("units[%d].id", i), "duplicate unit id %q", u.ID)
			}
			seen[u.ID] = true
		}
	}
	return nil
}

// Allocate distributes total capital across units.
//
// Each eligible unit (governance ≥ MinGovernance) receives capital in proportion to
// governance+1; ineligible units receive exactly 0. Allocations are capped at MaxAlloc and the
// capped-off capital is handed out once, in proportion to the remaining room of eligible
// units. This single pass is not iterated to a fixed point: whatever cannot be placed is
// reported as UnallocatedCapital.
func (a *Allocator) Allocate(params Params, inputs []UnitInput) (*Plan, error) {
	if err := validate(params, inputs); err != nil {
		return nil, err
	}

	n := len(inputs)
	gov := make([]float64, n)
	effective := make([]float64, n)
	eligible := make([]bool, n)
	eligibleCount := 0
	for i, u := range inputs {
		gov[i] = u.GovernanceScore
		eligible[i] = u.GovernanceScore >= params.MinGovernance
		if eligible[i] {
			effective[i] = u.GovernanceScore + 1
			eligibleCount++
		}
	}

	alloc := make([]float64, n)
	effectiveSum := floats.Sum(effective)
	if effectiveSum > 0 {
		for i := range alloc {
			alloc[i] = effective[i] / effectiveSum * params.TotalCapital
		}
	}

	capped := params.MaxAlloc > 0
	if capped {
		for i := range alloc {
			alloc[i] = math.Min(alloc[i], params.MaxAlloc)
		}

		leftover := params.TotalCapital - floats.Sum(alloc)
		if leftover > 0 {
			room := make([]float64, n)
			for i := range room {
				if eligible[i] {
					room[i] = math.Max(params.MaxAlloc-alloc[i], 0)
				}
			}
			roomSum := floats.Sum(room)
			if roomSum > 0 {
				distribute := math.Min(leftover, roomSum)
				for i := range alloc {
					alloc[i] = math.Min(alloc[i]+distribute*room[i]/roomSum, params.MaxAlloc)
				}
			}
		}
	}

	plan := &Plan{
		ID:                uuid.New().String(),
		Params:            params,
		Units:             make([]Unit, n),
		EligibleCount:     eligibleCount,
		EligibleFraction:  float64(eligibleCount) / float64(n),
		NoEligibleUnits:   eligibleCount == 0,
		ConcentratedUnits: []string{},
	}

	slowest := -1
	for i, u := range inputs {
		id := u.ID
		if id == "" {
			id = fmt.Sprintf("unit-%d", i+1)
		}
		duration := shock.AdjustmentDuration(alloc[i], params.ShockCoefficient, gov[i])

		var share float64
		if params.TotalCapital > 0 {
			share = alloc[i] / params.TotalCapital * 100
		}

		plan.Units[i] = Unit{
			ID:               id,
			GovernanceScore:  gov[i],
			Eligible:         eligible[i],
			EffectiveWeight:  effective[i],
			AllocatedCapital: alloc[i],
			ShareOfTotalPct:  share,
			DurationDays:     duration,
		}
		plan.TotalDurationDays += duration

		if slowest < 0 || duration > plan.Units[slowest].DurationDays {
			slowest = i
		}
		if params.TotalCapital > 0 && alloc[i] > a.opts.ConcentrationThreshold*params.TotalCapital {
			plan.ConcentratedUnits = append(plan.ConcentratedUnits, id)
		}
	}

	plan.SlowestUnit = plan.Units[slowest].ID
	plan.SlowestDuration = plan.Units[slowest].DurationDays
	plan.AllocatedCapital = floats.Sum(alloc)
	plan.UnallocatedCapital = math.Max(params.TotalCapital-plan.AllocatedCapital, 0)
	plan.Sensitivity = sensitivity.Collect(a.SensitivitySweep(plan))

	a.log.Debug().
		Str("plan_id", plan.ID).
		Int("units", n).
		Int("eligible", eligibleCount).
		Float64("allocated", plan.AllocatedCapital).
		Float64("unallocated", plan.UnallocatedCapital).
		Msg("Computed capital allocation")

	return plan, nil
}

// SensitivitySweep re-runs the duration formula (not the allocation) over the configured shock
// coefficient sweep and yields the mean duration across all units for each coefficient.
func (a *Allocator) SensitivitySweep(plan *Plan) iter.Seq2[float64, float64] {
	alloc := make([]float64, len(plan.Units))
	gov := make([]float64, len(plan.Units))
	for i, u := range plan.Units {
		alloc[i] = u.AllocatedCapital
		gov[i] = u.GovernanceScore
	}
	return sensitivity.MeanDurationSweep(alloc, gov, a.sweep)
}
