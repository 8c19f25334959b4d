// Package shock models how long an institution needs to re-adjust its capital after a shock.
package shock

import (
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/aristath/govsim/internal/domain"
	"github.com/rs/zerolog"
)

// Type tags an exogenous financial event.
type Type string

const (
	LiquidityDrop        Type = "liquidity_drop"
	OperationalLoss      Type = "operational_loss"
	RegulatoryTightening Type = "regulatory_tightening"
)

// DefaultDegradationRate is the share of capital lost per day on the projected path.
const DefaultDegradationRate = 0.025

// DefaultMaxPathDays bounds the degradation paths that are materialized or streamed.
const DefaultMaxPathDays = 3650

// ImpactTable maps each shock type to its severity coefficient.
type ImpactTable map[Type]float64

// DefaultImpacts returns the fixed coefficient table.
func DefaultImpacts() ImpactTable {
	return ImpactTable{
		LiquidityDrop:        0.3,
		OperationalLoss:      0.5,
		RegulatoryTightening: 0.4,
	}
}

// Validate checks every coefficient is positive and finite.
func (t ImpactTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("shock impact table is empty")
	}
	for st, c := range t {
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("shock %s: impact coefficient must be positive, got %g", st, c)
		}
	}
	return nil
}

// Coefficient looks up the impact coefficient of a shock type.
func (t ImpactTable) Coefficient(st Type) (float64, error) {
	c, ok := t[st]
	if !ok {
		return 0, &domain.Error{
			Kind:   domain.KindInvalidShockType,
			Field:  "shock_type",
			Detail: fmt.Sprintf("unknown shock type %q, expected one of %v", st, t.Types()),
		}
	}
	return c, nil
}

// Types returns the known shock types in sorted order.
func (t ImpactTable) Types() []Type {
	types := make([]Type, 0, len(t))
	for st := range t {
		types = append(types, st)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Outcome is the result of a single shock simulation.
type Outcome struct {
	ShockType       Type    `json:"shock_type"`
	Coefficient     float64 `json:"impact_coefficient"`
	Capital         float64 `json:"capital"`
	GovernanceScore float64 `json:"governance_score"`
	// DurationDays is rounded to 2 decimal places.
	DurationDays float64 `json:"duration_days"`
	// CapitalDecreasePct is the projected loss at the end of the degradation path, in percent.
	CapitalDecreasePct float64 `json:"capital_decrease_pct"`
}

// Model is the shock adjustment model. It holds only read-only coefficients.
type Model struct {
	impacts         ImpactTable
	degradationRate float64
	maxPathDays     int
	log             zerolog.Logger
}

// NewModel creates a shock adjustment model. maxPathDays caps the length of paths returned by
// Path; the lazy DegradationPath is not capped.
func NewModel(impacts ImpactTable, degradationRate float64, maxPathDays int, log zerolog.Logger) (*Model, error) {
	if err := impacts.Validate(); err != nil {
		return nil, err
	}
	if degradationRate < 0 || math.IsNaN(degradationRate) {
		return nil, fmt.Errorf("degradation rate must be non-negative, got %g", degradationRate)
	}
	if maxPathDays < 1 {
		return nil, fmt.Errorf("max path days must be positive, got %d", maxPathDays)
	}

	copied := make(ImpactTable, len(impacts))
	for st, c := range impacts {
		copied[st] = c
	}

	return &Model{
		impacts:         copied,
		degradationRate: degradationRate,
		maxPathDays:     maxPathDays,
		log:             log.With().Str("component", "shock_model").Logger(),
	}, nil
}

// Impacts returns a copy of the coefficient table.
func (m *Model) Impacts() ImpactTable {
	copied := make(ImpactTable, len(m.impacts))
	for st, c := range m.impacts {
		copied[st] = c
	}
	return copied
}

// Coefficient returns the impact coefficient for a shock type.
func (m *Model) Coefficient(st Type) (float64, error) {
	return m.impacts.Coefficient(st)
}

// AdjustmentDuration is (capital × coefficient) / (governance score + 1), unrounded.
func AdjustmentDuration(capital, coefficient, governanceScore float64) float64 {
	return (capital * coefficient) / (governanceScore + 1)
}

// Simulate computes the adjustment duration, in days, for a shock hitting the given capital.
func (m *Model) Simulate(capital, governanceScore float64, st Type) (*Outcome, error) {
	if err := domain.CheckNonNegative("capital", capital); err != nil {
		return nil, err
	}
	if err := domain.CheckNonNegative("governance_score", governanceScore); err != nil {
		return nil, err
	}
	coefficient, err := m.impacts.Coefficient(st)
	if err != nil {
		return nil, err
	}

	duration := round(AdjustmentDuration(capital, coefficient, governanceScore), 2)

	outcome := &Outcome{
		ShockType:       st,
		Coefficient:     coefficient,
		Capital:         capital,
		GovernanceScore: governanceScore,
		DurationDays:    duration,
	}

	// Last point of the degradation path, in closed form.
	if days := pathDays(duration); days > 0 && capital > 0 {
		last := capital * (1 - m.degradationRate*days)
		outcome.CapitalDecreasePct = round((capital-last)/capital*100, 2)
	}

	m.log.Debug().
		Str("shock_type", string(st)).
		Float64("capital", capital).
		Float64("governance_score", governanceScore).
		Float64("duration_days", duration).
		Msg("Simulated shock adjustment")

	return outcome, nil
}

// PathPoint is one day of a degradation path.
type PathPoint struct {
	Day     int     `json:"day"`
	Capital float64 `json:"capital"`
}

// DegradationPath yields (day, projected capital) for day = 1..floor(durationDays),
// with capital(t) = capital × (1 − rate·t). The sequence is finite and may be ranged over
// any number of times.
func (m *Model) DegradationPath(capital, durationDays float64) iter.Seq2[int, float64] {
	return DegradationPath(capital, durationDays, m.degradationRate)
}

// DegradationPath is the model-free form of Model.DegradationPath.
func DegradationPath(capital, durationDays, rate float64) iter.Seq2[int, float64] {
	days := int(math.Min(pathDays(durationDays), 1<<62))
	return func(yield func(int, float64) bool) {
		for t := 1; t <= days; t++ {
			if !yield(t, capital*(1-rate*float64(t))) {
				return
			}
		}
	}
}

// Path materializes the degradation path. Paths longer than the model's day limit are rejected.
func (m *Model) Path(capital, durationDays float64) ([]PathPoint, error) {
	if err := m.CheckPathLength(durationDays); err != nil {
		return nil, err
	}
	path := []PathPoint{}
	for day, value := range m.DegradationPath(capital, durationDays) {
		path = append(path, PathPoint{Day: day, Capital: value})
	}
	return path, nil
}

// CheckPathLength fails when a path of durationDays would exceed the model's day limit.
func (m *Model) CheckPathLength(durationDays float64) error {
	if days := pathDays(durationDays); days > float64(m.maxPathDays) {
		return domain.NewValidationError("duration_days",
			"degradation path of %.0f days exceeds the limit of %d days", days, m.maxPathDays)
	}
	return nil
}

// pathDays is floor(durationDays), or 0 when the duration is not positive and finite.
func pathDays(durationDays float64) float64 {
	if durationDays <= 0 || math.IsInf(durationDays, 0) || math.IsNaN(durationDays) {
		return 0
	}
	return math.Floor(durationDays)
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
