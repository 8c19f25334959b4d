// Package sensitivity recomputes a dependent metric over a parameter sweep without touching
// the base allocation or weight vector.
package sensitivity

import (
	"iter"

	"github.com/aristath/govsim/internal/modules/shock"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Point is one (parameter, metric) pair of a sweep.
type Point struct {
	Param  float64 `json:"param"`
	Metric float64 `json:"metric"`
}

// Linspace returns n evenly spaced values from start to end inclusive.
func Linspace(start, end float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// Sweep lazily evaluates metric at every parameter value.
func Sweep(params []float64, metric func(param float64) float64) iter.Seq2[float64, float64] {
	values := append([]float64(nil), params...)
	return func(yield func(float64, float64) bool) {
		for _, p := range values {
			if !yield(p, metric(p)) {
				return
			}
		}
	}
}

// Collect materializes a sweep.
func Collect(seq iter.Seq2[float64, float64]) []Point {
	var points []Point
	for p, m := range seq {
		points = append(points, Point{Param: p, Metric: m})
	}
	return points
}

// MeanDurationSweep recomputes the mean adjustment duration over all units for every shock
// coefficient. Allocations are held fixed; only the duration formula is re-run. The sequence
// may be ranged over from several goroutines at once.
func MeanDurationSweep(allocations, governance, coefficients []float64) iter.Seq2[float64, float64] {
	alloc := append([]float64(nil), allocations...)
	gov := append([]float64(nil), governance...)

	return Sweep(coefficients, func(coefficient float64) float64 {
		if len(alloc) == 0 {
			return 0
		}
		durations := make([]float64, len(alloc))
		for i := range alloc {
			durations[i] = shock.AdjustmentDuration(alloc[i], coefficient, gov[i])
		}
		return stat.Mean(durations, nil)
	})
}

// PortfolioReturn is w·r.
func PortfolioReturn(weights, returns []float64) float64 {
	return floats.Dot(weights, returns)
}

// ReturnBumpSweep bumps the return of one asset by each delta and yields the resulting
// portfolio return. Weights are held fixed.
func ReturnBumpSweep(weights, returns []float64, asset int, deltas []float64) iter.Seq2[float64, float64] {
	w := append([]float64(nil), weights...)
	base := append([]float64(nil), returns...)

	return Sweep(deltas, func(delta float64) float64 {
		bumped := append([]float64(nil), base...)
		bumped[asset] += delta
		return PortfolioReturn(w, bumped)
	})
}

// ReturnSensitivity is the finite-difference Δreturn/Δr_i for every asset, using a fixed bump.
func ReturnSensitivity(weights, returns []float64, bump float64) []float64 {
	if bump == 0 {
		return make([]float64, len(weights))
	}
	baseReturn := PortfolioReturn(weights, returns)
	sensitivity := make([]float64, len(weights))
	for i := range weights {
		for _, bumpedReturn := range ReturnBumpSweep(weights, returns, i, []float64{bump}) {
			sensitivity[i] = (bumpedReturn - baseReturn) / bump
		}
	}
	return sensitivity
}
