package optimization

import (
	"math"

	"github.com/aristath/govsim/internal/domain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MaxShrinkage caps the weight given to the constant-covariance target.
const MaxShrinkage = 0.5

// SampleCovariance estimates the covariance of asset returns from history, one row per
// observation and one column per asset, using the N−1 denominator.
func SampleCovariance(history [][]float64, assets int) (*mat.SymDense, error) {
	if len(history) < 2 {
		return nil, domain.NewValidationError("return_history", "need at least 2 observations, got %d", len(history))
	}
	data := mat.NewDense(len(history), assets, nil)
	for i, row := range history {
		if len(row) != assets {
			return nil, domain.NewValidationError("return_history", "observation %d has %d values, expected %d", i+1, len(row), assets)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.NewValidationError("return_history", "observation %d asset %d is not a finite number", i+1, j+1)
			}
			data.Set(i, j, v)
		}
	}

	cov := mat.NewSymDense(assets, nil)
	stat.CovarianceMatrix(cov, data, nil)
	return cov, nil
}

// ShrinkCovariance pulls a sample covariance toward the constant-covariance target (average
// variance on the diagonal, average covariance off it). The intensity is estimated from the
// dispersion of the sample entries relative to their distance from the target, capped at
// MaxShrinkage. It returns the shrunk matrix and the intensity used.
func ShrinkCovariance(sample mat.Symmetric) (*mat.SymDense, float64) {
	n := sample.SymmetricDim()
	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample.At(i, i)
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample.At(i, j)
			}
		}
	}
	avgVar /= float64(n)
	if n > 1 {
		avgCov /= float64(n * (n - 1))
	}

	target := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		return avgCov
	}

	shrinkage := 0.2
	if n > 2 && avgVar > 0 {
		var sumSqDiff, sum, sumSq float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := sample.At(i, j)
				d := v - target(i, j)
				sumSqDiff += d * d
				sum += v
				sumSq += v * v
			}
		}
		count := float64(n * n)
		meanSqDiff := sumSqDiff / count
		mean := sum / count
		dispersion := sumSq/count - mean*mean
		if dispersion > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(MaxShrinkage, math.Max(0, dispersion/(dispersion+meanSqDiff)))
		}
	}

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, (1-shrinkage)*sample.At(i, j)+shrinkage*target(i, j))
		}
	}
	return out, shrinkage
}

// EstimateCovariance builds the shrunk covariance from return history.
func EstimateCovariance(history [][]float64, assets int) (*mat.SymDense, error) {
	sample, err := SampleCovariance(history, assets)
	if err != nil {
		return nil, err
	}
	cov, _ := ShrinkCovariance(sample)
	return cov, nil
}
