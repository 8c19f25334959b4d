package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/aristath/govsim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCovarianceFromRows(t *testing.T) {
	cov, err := CovarianceFromRows([][]float64{{0.04, 0.01}, {0.01, 0.09}})
	require.NoError(t, err)

	n, _ := cov.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, 0.01, cov.At(1, 0))
	assert.Equal(t, 0.09, cov.At(1, 1))
}

func TestCovarianceFromRows_Errors(t *testing.T) {
	tests := []struct {
		name  string
		rows  [][]float64
		field string
	}{
		{"empty", [][]float64{}, "covariance"},
		{"ragged", [][]float64{{1, 0}, {0}}, "covariance[1]"},
		{"asymmetric", [][]float64{{1, 0.2}, {0.1, 1}}, "covariance[0][1]"},
		{"negative variance", [][]float64{{-1, 0}, {0, 1}}, "covariance[0][0]"},
		{"not finite", [][]float64{{math.Inf(1), 0}, {0, 1}}, "covariance[0][0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CovarianceFromRows(tt.rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))

			var derr *domain.Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.field, derr.Field)
		})
	}
}

func TestPortfolioVariance(t *testing.T) {
	cov := DiagonalCovariance(2, 0.02)
	assert.InDelta(t, 0.02*0.25*2, PortfolioVariance([]float64{0.5, 0.5}, cov), 1e-12)
}
