// Package optimization derives portfolio weights: a closed-form heuristic allocator and a
// quadratic-utility optimizer delegated to a convex solver capability.
package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/govsim/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the largest |Σij − Σji| accepted in a supplied covariance.
const symmetryTolerance = 1e-12

// Defaults for portfolio metrics.
const (
	DefaultRiskFreeRate        = 0.02
	DefaultRiskAversion        = 0.1
	DefaultPlaceholderVariance = 0.02
	DefaultReturnBump          = 0.01
)

// Asset is one investable asset with its weight band.
type Asset struct {
	ID             string  `json:"id"`
	ExpectedReturn float64 `json:"expected_return"`
	MinWeight      float64 `json:"min_weight"`
	MaxWeight      float64 `json:"max_weight"`
}

// Portfolio is the input of an optimization call.
type Portfolio struct {
	Assets []Asset `json:"assets"`
	// TotalCapital denominates weights in currency. Zero leaves amounts at zero.
	TotalCapital float64 `json:"total_capital"`
	// RiskAversion overrides the configured λ when set.
	RiskAversion *float64 `json:"risk_aversion,omitempty"`
	// ReturnHistory, one row per observation, yields a shrunk sample covariance when Covariance
	// is nil.
	ReturnHistory [][]float64 `json:"return_history,omitempty"`
	// Covariance defaults to a diagonal placeholder when nil and no history is given.
	Covariance mat.Symmetric `json:"-"`
}

// AssetWeight is the weight assigned to one asset.
type AssetWeight struct {
	ID        string  `json:"id"`
	Weight    float64 `json:"weight"`
	Amount    float64 `json:"amount"`
	MinWeight float64 `json:"min_weight"`
	MaxWeight float64 `json:"max_weight"`
	// ReturnContributionPct is weight × expected return, in percent.
	ReturnContributionPct float64 `json:"return_contribution_pct"`
}

// Metrics summarizes the risk and return of a weight vector.
type Metrics struct {
	ExpectedReturn float64 `json:"expected_return"`
	Variance       float64 `json:"variance"`
	StdDev         float64 `json:"std_dev"`
	Sharpe         float64 `json:"sharpe"`
	// SharpeUndefined is set when the standard deviation is zero and Sharpe fell back to 0.
	SharpeUndefined bool `json:"sharpe_undefined"`
}

func (p Portfolio) returns() []float64 {
	r := make([]float64, len(p.Assets))
	for i, a := range p.Assets {
		r[i] = a.ExpectedReturn
	}
	return r
}

func (p Portfolio) bounds() (lower, upper []float64) {
	lower = make([]float64, len(p.Assets))
	upper = make([]float64, len(p.Assets))
	for i, a := range p.Assets {
		lower[i] = a.MinWeight
		upper[i] = a.MaxWeight
	}
	return lower, upper
}

func (p Portfolio) ids() []string {
	ids := make([]string, len(p.Assets))
	for i, a := range p.Assets {
		ids[i] = a.ID
		if ids[i] == "" {
			ids[i] = fmt.Sprintf("asset-%d", i+1)
		}
	}
	return ids
}

// DiagonalCovariance returns the n×n placeholder covariance variance·I.
func DiagonalCovariance(n int, variance float64) *mat.SymDense {
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, variance)
	}
	return cov
}

// PortfolioVariance returns wᵀΣw.
func PortfolioVariance(weights []float64, cov mat.Symmetric) float64 {
	w := mat.NewVecDense(len(weights), append([]float64(nil), weights...))
	return mat.Inner(w, cov, w)
}

// SharpeRatio returns (return − riskFree) / std. When std is zero the ratio is undefined and
// 0 is returned with ok == false.
func SharpeRatio(portfolioReturn, stdDev, riskFree float64) (sharpe float64, ok bool) {
	if stdDev == 0 {
		return 0, false
	}
	return (portfolioReturn - riskFree) / stdDev, true
}

func computeMetrics(weights, returns []float64, cov mat.Symmetric, riskFree float64) Metrics {
	ret := floats.Dot(weights, returns)
	variance := PortfolioVariance(weights, cov)
	std := math.Sqrt(math.Max(variance, 0))
	sharpe, ok := SharpeRatio(ret, std, riskFree)
	return Metrics{
		ExpectedReturn:  ret,
		Variance:        variance,
		StdDev:          std,
		Sharpe:          sharpe,
		SharpeUndefined: !ok,
	}
}

func assetWeights(p Portfolio, weights []float64) []AssetWeight {
	ids := p.ids()
	out := make([]AssetWeight, len(weights))
	for i, w := range weights {
		a := p.Assets[i]
		out[i] = AssetWeight{
			ID:                    ids[i],
			Weight:                w,
			Amount:                w * p.TotalCapital,
			MinWeight:             a.MinWeight,
			MaxWeight:             a.MaxWeight,
			ReturnContributionPct: w * a.ExpectedReturn * 100,
		}
	}
	return out
}

// Weights extracts the raw weight vector.
func Weights(assets []AssetWeight) []float64 {
	w := make([]float64, len(assets))
	for i, a := range assets {
		w[i] = a.Weight
	}
	return w
}

// CovarianceFromRows builds a covariance matrix from row-major values. The rows must form a
// square, symmetric matrix of finite values with a non-negative diagonal.
func CovarianceFromRows(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return nil, domain.NewValidationError("covariance", "matrix is empty")
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, domain.NewValidationError(fmt.Sprintf("covariance[%d]", i), "expected %d columns, got %d", n, len(row))
		}
	}

	data := make([]float64, 0, n*n)
	for i, row := range rows {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.NewValidationError(fmt.Sprintf("covariance[%d][%d]", i, j), "must be a finite number")
			}
			if math.Abs(v-rows[j][i]) > symmetryTolerance {
				return nil, domain.NewValidationError(fmt.Sprintf("covariance[%d][%d]", i, j), "matrix is not symmetric")
			}
		}
		if row[i] < 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("covariance[%d][%d]", i, i), "variance must be non-negative")
		}
		data = append(data, row...)
	}
	return mat.NewSymDense(n, data), nil
}
