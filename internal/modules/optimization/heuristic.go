package optimization

import (
	"math"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/sensitivity"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HeuristicResult is the output of the closed-form allocator.
type HeuristicResult struct {
	Assets  []AssetWeight `json:"assets"`
	Metrics Metrics       `json:"metrics"`
	// EqualWeightBaseline is set when returns summed to ≤ 0 and the baseline fell back to 1/n.
	EqualWeightBaseline bool `json:"equal_weight_baseline"`
	// WithinBounds reports whether every weight ended inside its band. Renormalization can push
	// weights below their floor.
	WithinBounds bool `json:"within_bounds"`
	// ReturnSensitivity is Δreturn/Δr_i per asset for the configured bump.
	ReturnSensitivity   []float64 `json:"return_sensitivity"`
	EqualWeight         Metrics   `json:"equal_weight"`
	UnconstrainedReturn float64   `json:"unconstrained_return"`
	// ConstraintCost is the return given up by the bounds: unconstrained − constrained.
	ConstraintCost float64 `json:"constraint_cost"`
}

// HeuristicWeights derives weights proportional to expected return, clamped to each band.
//
// Capital left unused after clamping (beyond rounding) is handed out once, in proportion to each asset's remaining
// room; if the weights then exceed 1 they are divided by their sum. Neither step is iterated, so
// the result is not guaranteed to honor both bounds at once. When Σr ≤ 0 the baseline is 1/n and
// fallback is true.
func HeuristicWeights(returns, lower, upper []float64) (weights, baseline []float64, fallback bool) {
	n := len(returns)
	baseline = make([]float64, n)
	total := floats.Sum(returns)
	if total > 0 && !math.IsInf(total, 0) {
		for i, r := range returns {
			baseline[i] = r / total
		}
	} else {
		fallback = true
		for i := range baseline {
			baseline[i] = 1.0 / float64(n)
		}
	}

	weights = make([]float64, n)
	for i := range weights {
		weights[i] = clamp(baseline[i], lower[i], upper[i])
	}

	if unused := 1 - floats.Sum(weights); unused > boundsTolerance {
		room := make([]float64, n)
		for i := range room {
			room[i] = math.Max(upper[i]-weights[i], 0)
		}
		if roomSum := floats.Sum(room); roomSum > 0 {
			for i := range weights {
				weights[i] += unused * room[i] / roomSum
			}
		}
	}

	if sum := floats.Sum(weights); sum > 1 {
		floats.Scale(1/sum, weights)
	}
	return weights, baseline, fallback
}

// Heuristic runs the closed-form allocator and its diagnostics.
func (o *Optimizer) Heuristic(p Portfolio) (*HeuristicResult, error) {
	if err := validatePortfolio(p); err != nil {
		return nil, err
	}
	lower, upper := p.bounds()
	if err := checkBounds(lower, upper, domain.KindInfeasibleBounds); err != nil {
		return nil, err
	}

	returns := p.returns()
	cov, err := o.covariance(p)
	if err != nil {
		return nil, err
	}
	weights, baseline, fallback := HeuristicWeights(returns, lower, upper)

	n := len(weights)
	equal := make([]float64, n)
	for i := range equal {
		equal[i] = 1.0 / float64(n)
	}

	result := &HeuristicResult{
		Assets:              assetWeights(p, weights),
		Metrics:             computeMetrics(weights, returns, cov, o.opts.RiskFreeRate),
		EqualWeightBaseline: fallback,
		WithinBounds:        withinBounds(weights, lower, upper, boundsTolerance),
		ReturnSensitivity:   sensitivity.ReturnSensitivity(weights, returns, o.opts.ReturnBump),
		EqualWeight:         computeMetrics(equal, returns, cov, o.opts.RiskFreeRate),
	}
	if fallback {
		result.UnconstrainedReturn = stat.Mean(returns, nil)
	} else {
		result.UnconstrainedReturn = floats.Dot(baseline, returns)
	}
	result.ConstraintCost = result.UnconstrainedReturn - result.Metrics.ExpectedReturn

	o.log.Debug().
		Int("assets", n).
		Bool("equal_weight_baseline", fallback).
		Bool("within_bounds", result.WithinBounds).
		Float64("expected_return", result.Metrics.ExpectedReturn).
		Msg("Computed heuristic weights")

	return result, nil
}
