package optimization

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/aristath/govsim/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// DefaultFuncEvaluations bounds the work of a single solve.
const DefaultFuncEvaluations = 20000

// MVOptimizer solves the mean-variance utility problem with gonum/optimize.
//
// The search runs over an unconstrained parameter x; the candidate weights are the exact
// projection of x onto the capped simplex, so every iterate is feasible. The objective adds
// ½‖x − P(x)‖² so the minimizer is unique and sits on the feasible set:
//
//	minimize −(r·P(x) − λ·P(x)ᵀΣP(x)) + ½‖x − P(x)‖²
type MVOptimizer struct {
	funcEvaluations int
	log             zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		funcEvaluations: DefaultFuncEvaluations,
		log:             log.With().Str("component", "mv_optimizer").Logger(),
	}
}

var acceptedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.GradientThreshold:   true,
	optimize.FunctionConvergence: true,
	optimize.MethodConverge:      true,
	optimize.StepConvergence:     true,
}

// Solve implements Solver.
func (mvo *MVOptimizer) Solve(ctx context.Context, p Problem) ([]float64, error) {
	n := len(p.Returns)
	if n == 0 || len(p.Lower) != n || len(p.Upper) != n {
		return nil, domain.NewValidationError("problem", "returns and bounds must have the same non-zero length")
	}
	if err := checkBounds(p.Lower, p.Upper, domain.KindInfeasible); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.KindSolver, err, "solver not started")
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w, _ := ProjectCappedSimplex(x, p.Lower, p.Upper)
			return -p.Utility(w) + 0.5*floats.Distance(x, w, 2)*floats.Distance(x, w, 2)
		},
		Grad: func(grad, x []float64) {
			w, tau := ProjectCappedSimplex(x, p.Lower, p.Upper)
			g := make([]float64, n)
			p.utilityGradient(g, w)
			floats.Scale(-1, g)
			projectionJacobianApply(grad, g, x, p.Lower, p.Upper, tau)
			for i := range grad {
				grad[i] += x[i] - w[i]
			}
		},
	}

	equal := make([]float64, n)
	for i := range equal {
		equal[i] = 1.0 / float64(n)
	}
	initial, _ := ProjectCappedSimplex(equal, p.Lower, p.Upper)

	settings := &optimize.Settings{FuncEvaluations: mvo.funcEvaluations}
	if deadline, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(deadline)
		if settings.Runtime <= 0 {
			return nil, domain.WrapError(domain.KindSolver, context.DeadlineExceeded, "solver deadline already passed")
		}
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	if err != nil || result == nil || !acceptedStatuses[result.Status] {
		mvo.log.Debug().Err(err).Msg("Nelder-Mead did not converge, retrying with BFGS")
		// Try with different method
		if deadline, ok := ctx.Deadline(); ok {
			settings.Runtime = time.Until(deadline)
			if settings.Runtime <= 0 {
				return nil, domain.WrapError(domain.KindSolver, context.DeadlineExceeded, "solver timed out")
			}
		}
		result, err = optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
		if err != nil {
			return nil, domain.WrapError(domain.KindSolver, err, "optimization failed")
		}
		if result == nil || !acceptedStatuses[result.Status] {
			return nil, domain.NewError(domain.KindSolver, "optimization did not converge: status=%v", statusOf(result))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.KindSolver, err, "solver interrupted")
	}

	weights, _ := ProjectCappedSimplex(result.X, p.Lower, p.Upper)
	for _, w := range weights {
		if math.IsNaN(w) {
			return nil, domain.WrapError(domain.KindSolver, errors.New("NaN weight"), "solver returned an invalid point")
		}
	}

	mvo.log.Debug().
		Int("assets", n).
		Str("status", result.Status.String()).
		Int("func_evaluations", result.Stats.FuncEvaluations).
		Float64("utility", p.Utility(weights)).
		Msg("Solved mean-variance problem")

	return weights, nil
}

func statusOf(result *optimize.Result) optimize.Status {
	if result == nil {
		return optimize.NotTerminated
	}
	return result.Status
}
