package optimization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/govsim/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultSolverTimeout bounds a single QP solve.
const DefaultSolverTimeout = 5 * time.Second

// solutionTolerance is how far a solver's vector may stray from the constraints.
const solutionTolerance = 1e-6

// Options are the fixed coefficients of the optimizer. They are read-only after construction.
type Options struct {
	RiskFreeRate        float64
	RiskAversion        float64
	PlaceholderVariance float64
	ReturnBump          float64
	SolverTimeout       time.Duration
}

// DefaultOptions returns the standard coefficients.
func DefaultOptions() Options {
	return Options{
		RiskFreeRate:        DefaultRiskFreeRate,
		RiskAversion:        DefaultRiskAversion,
		PlaceholderVariance: DefaultPlaceholderVariance,
		ReturnBump:          DefaultReturnBump,
		SolverTimeout:       DefaultSolverTimeout,
	}
}

// OptimalResult is a verified solution of the QP.
type OptimalResult struct {
	Assets       []AssetWeight `json:"assets"`
	Metrics      Metrics       `json:"metrics"`
	RiskAversion float64       `json:"risk_aversion"`
	Utility      float64       `json:"utility"`
}

// Reconciliation compares heuristic and optimal weights.
type Reconciliation struct {
	MaxAbsWeightDiff float64 `json:"max_abs_weight_diff"`
	ReturnDiff       float64 `json:"return_diff"`
}

// Report carries both optimizers' outputs. Optimal is nil whenever the QP failed, and
// OptimalError says why; heuristic weights are never substituted.
type Report struct {
	ID             string           `json:"id"`
	Heuristic      *HeuristicResult `json:"heuristic"`
	Optimal        *OptimalResult   `json:"optimal"`
	OptimalError   *domain.Error    `json:"optimal_error,omitempty"`
	Reconciliation *Reconciliation  `json:"reconciliation,omitempty"`
}

// Optimizer runs the heuristic allocator and the QP through a Solver.
type Optimizer struct {
	opts   Options
	solver Solver
	log    zerolog.Logger
}

// NewOptimizer creates a new portfolio optimizer.
func NewOptimizer(opts Options, solver Solver, log zerolog.Logger) (*Optimizer, error) {
	if solver == nil {
		return nil, fmt.Errorf("solver is required")
	}
	if opts.PlaceholderVariance < 0 {
		return nil, fmt.Errorf("placeholder variance must be non-negative, got %g", opts.PlaceholderVariance)
	}
	if opts.RiskAversion < 0 {
		return nil, fmt.Errorf("risk aversion must be non-negative, got %g", opts.RiskAversion)
	}
	if opts.SolverTimeout <= 0 {
		opts.SolverTimeout = DefaultSolverTimeout
	}
	return &Optimizer{
		opts:   opts,
		solver: solver,
		log:    log.With().Str("component", "portfolio_optimizer").Logger(),
	}, nil
}

// Options returns the optimizer coefficients.
func (o *Optimizer) Options() Options {
	return o.opts
}

func (o *Optimizer) covariance(p Portfolio) (mat.Symmetric, error) {
	switch {
	case p.Covariance != nil:
		return p.Covariance, nil
	case len(p.ReturnHistory) > 0:
		return EstimateCovariance(p.ReturnHistory, len(p.Assets))
	default:
		return DiagonalCovariance(len(p.Assets), o.opts.PlaceholderVariance), nil
	}
}

func (o *Optimizer) riskAversion(p Portfolio) float64 {
	if p.RiskAversion != nil {
		return *p.RiskAversion
	}
	return o.opts.RiskAversion
}

// OptimizeQP solves maximize r·w − λ·wᵀΣw under Σw = 1 and the asset bands.
//
// Bounds that make full investment unreachable fail with an infeasible error before the solver
// runs. Solver failures, timeouts and vectors that violate the constraints fail with a
// solver_error. No weights are returned on failure.
func (o *Optimizer) OptimizeQP(ctx context.Context, p Portfolio) (*OptimalResult, error) {
	if err := validatePortfolio(p); err != nil {
		return nil, err
	}
	lower, upper := p.bounds()
	if err := checkBounds(lower, upper, domain.KindInfeasible); err != nil {
		return nil, err
	}

	cov, err := o.covariance(p)
	if err != nil {
		return nil, err
	}
	problem := Problem{
		Returns:      p.returns(),
		Covariance:   cov,
		RiskAversion: o.riskAversion(p),
		Lower:        lower,
		Upper:        upper,
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.SolverTimeout)
	defer cancel()

	start := time.Now()
	weights, err := o.solver.Solve(ctx, problem)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) && (derr.Kind == domain.KindInfeasible || derr.Kind == domain.KindSolver) {
			return nil, err
		}
		return nil, domain.WrapError(domain.KindSolver, err, "solver failed")
	}
	if err := verifySolution(weights, lower, upper); err != nil {
		return nil, err
	}

	o.log.Debug().
		Int("assets", len(weights)).
		Dur("elapsed", time.Since(start)).
		Msg("Solved QP")

	return &OptimalResult{
		Assets:       assetWeights(p, weights),
		Metrics:      computeMetrics(weights, problem.Returns, problem.Covariance, o.opts.RiskFreeRate),
		RiskAversion: problem.RiskAversion,
		Utility:      problem.Utility(weights),
	}, nil
}

func verifySolution(weights, lower, upper []float64) error {
	if len(weights) != len(lower) {
		return domain.NewError(domain.KindSolver, "solver returned %d weights for %d assets", len(weights), len(lower))
	}
	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return domain.NewError(domain.KindSolver, "solver returned a non-finite weight")
		}
	}
	if sum := floats.Sum(weights); math.Abs(sum-1) > solutionTolerance {
		return domain.NewError(domain.KindSolver, "solver weights sum to %g", sum)
	}
	if !withinBounds(weights, lower, upper, solutionTolerance) {
		return domain.NewError(domain.KindSolver, "solver weights violate the asset bounds")
	}
	return nil
}

// Optimize runs both optimizers. Only validation and heuristic bound failures are returned as
// errors; a QP failure is reported inside the Report.
func (o *Optimizer) Optimize(ctx context.Context, p Portfolio) (*Report, error) {
	heuristic, err := o.Heuristic(p)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        uuid.New().String(),
		Heuristic: heuristic,
	}

	optimal, err := o.OptimizeQP(ctx, p)
	if err != nil {
		var derr *domain.Error
		if !errors.As(err, &derr) {
			derr = domain.WrapError(domain.KindSolver, err, "solver failed")
		}
		report.OptimalError = derr
		o.log.Warn().Err(err).Str("report_id", report.ID).Msg("Optimal weights unavailable")
		return report, nil
	}
	report.Optimal = optimal

	hw := Weights(heuristic.Assets)
	ow := Weights(optimal.Assets)
	var maxDiff float64
	for i := range hw {
		maxDiff = math.Max(maxDiff, math.Abs(hw[i]-ow[i]))
	}
	report.Reconciliation = &Reconciliation{
		MaxAbsWeightDiff: maxDiff,
		ReturnDiff:       optimal.Metrics.ExpectedReturn - heuristic.Metrics.ExpectedReturn,
	}
	return report, nil
}
