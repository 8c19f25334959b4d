package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/govsim/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// validatePortfolio checks scalar inputs. Bounds feasibility is checked separately.
func validatePortfolio(p Portfolio) error {
	if len(p.Assets) == 0 {
		return domain.NewValidationError("assets", "at least one asset is required")
	}
	if err := domain.CheckNonNegative("total_capital", p.TotalCapital); err != nil {
		return err
	}
	if p.RiskAversion != nil {
		if err := domain.CheckNonNegative("risk_aversion", *p.RiskAversion); err != nil {
			return err
		}
	}
	for i, a := range p.Assets {
		if math.IsNaN(a.ExpectedReturn) || math.IsInf(a.ExpectedReturn, 0) {
			return domain.NewValidationError(fmt.Sprintf("assets[%d].expected_return", i), "must be a finite number")
		}
		if err := domain.CheckRange(fmt.Sprintf("assets[%d].min_weight", i), a.MinWeight, 0, 1); err != nil {
			return err
		}
		if err := domain.CheckRange(fmt.Sprintf("assets[%d].max_weight", i), a.MaxWeight, 0, 1); err != nil {
			return err
		}
	}
	if p.Covariance != nil {
		if n := p.Covariance.SymmetricDim(); n != len(p.Assets) {
			return domain.NewValidationError("covariance", "matrix size %d doesn't match asset count %d", n, len(p.Assets))
		}
	}
	return nil
}

// checkBounds verifies min ≤ max per asset and Σmin ≤ 1 ≤ Σmax, reporting failures with kind.
func checkBounds(lower, upper []float64, kind domain.ErrorKind) error {
	for i := range lower {
		if lower[i] > upper[i] {
			return &domain.Error{
				Kind:   kind,
				Field:  fmt.Sprintf("assets[%d]", i),
				Detail: fmt.Sprintf("min weight %g exceeds max weight %g", lower[i], upper[i]),
			}
		}
	}
	if s := floats.Sum(lower); s > 1+boundsTolerance {
		return domain.NewError(kind, "minimum weights sum to %g, full investment is unreachable", s)
	}
	if s := floats.Sum(upper); s < 1-boundsTolerance {
		return domain.NewError(kind, "maximum weights sum to %g, full investment is unreachable", s)
	}
	return nil
}

const boundsTolerance = 1e-9

func withinBounds(weights, lower, upper []float64, tol float64) bool {
	for i, w := range weights {
		if w < lower[i]-tol || w > upper[i]+tol {
			return false
		}
	}
	return true
}
