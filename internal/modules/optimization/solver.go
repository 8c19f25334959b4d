package optimization

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Problem is the quadratic-utility program
//
//	maximize r·w − λ·wᵀΣw  subject to  Σw = 1, lower ≤ w ≤ upper.
type Problem struct {
	Returns      []float64
	Covariance   mat.Symmetric
	RiskAversion float64
	Lower        []float64
	Upper        []float64
}

// Utility evaluates the objective r·w − λ·wᵀΣw.
func (p Problem) Utility(w []float64) float64 {
	return floats.Dot(p.Returns, w) - p.RiskAversion*PortfolioVariance(w, p.Covariance)
}

// utilityGradient writes ∇(r·w − λ·wᵀΣw) = r − 2λΣw into dst.
func (p Problem) utilityGradient(dst, w []float64) {
	n := len(w)
	sw := mat.NewVecDense(n, nil)
	sw.MulVec(p.Covariance, mat.NewVecDense(n, append([]float64(nil), w...)))
	for i := range dst {
		dst[i] = p.Returns[i] - 2*p.RiskAversion*sw.AtVec(i)
	}
}

// Solver is the convex optimization capability. Solve returns a weight vector satisfying the
// problem's constraints, or an error of kind infeasible or solver_error. Implementations must
// honor ctx cancellation.
type Solver interface {
	Solve(ctx context.Context, p Problem) ([]float64, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, p Problem) ([]float64, error)

// Solve calls f(ctx, p).
func (f SolverFunc) Solve(ctx context.Context, p Problem) ([]float64, error) {
	return f(ctx, p)
}

const projectionIterations = 200

// ProjectCappedSimplex returns the Euclidean projection of x onto
// {w : Σw = 1, lower ≤ w ≤ upper}, together with the shift τ such that
// w_i = clamp(x_i − τ, lower_i, upper_i). The set must be non-empty.
func ProjectCappedSimplex(x, lower, upper []float64) (w []float64, tau float64) {
	n := len(x)
	w = make([]float64, n)
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			for i := range w {
				w[i] = math.NaN()
			}
			return w, math.NaN()
		}
	}

	// Σ clamp(x − τ) is non-increasing in τ; at lo every weight sits on its upper bound, at hi on
	// its lower bound.
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range x {
		lo = math.Min(lo, x[i]-upper[i])
		hi = math.Max(hi, x[i]-lower[i])
	}

	sumAt := func(t float64) float64 {
		var s float64
		for i := range x {
			s += clamp(x[i]-t, lower[i], upper[i])
		}
		return s
	}

	for iter := 0; iter < projectionIterations && hi-lo > 1e-15; iter++ {
		mid := (lo + hi) / 2
		if sumAt(mid) > 1 {
			lo = mid
		} else {
			hi = mid
		}
	}
	tau = (lo + hi) / 2
	for i := range x {
		w[i] = clamp(x[i]-tau, lower[i], upper[i])
	}
	return w, tau
}

// projectionJacobianApply computes J·v for the projection at x with shift tau: free coordinates
// are centered, coordinates held on a bound get zero.
func projectionJacobianApply(dst, v, x, lower, upper []float64, tau float64) {
	var sum float64
	free := 0
	for i := range x {
		y := x[i] - tau
		if y > lower[i] && y < upper[i] {
			sum += v[i]
			free++
		}
	}
	for i := range x {
		y := x[i] - tau
		if y > lower[i] && y < upper[i] {
			dst[i] = v[i] - sum/float64(free)
		} else {
			dst[i] = 0
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
