package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/govsim/internal/modules/advisory"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const threeAssets = `{
	"assets": [
		{"id": "bonds", "expected_return": 0.10, "min_weight": 0, "max_weight": 1},
		{"id": "cash", "expected_return": 0.05, "min_weight": 0, "max_weight": 1},
		{"id": "equity", "expected_return": 0.08, "min_weight": 0, "max_weight": 1}
	],
	"total_capital": 1000
}`

func newTestRouter(t *testing.T, solver optimization.Solver) *chi.Mux {
	t.Helper()
	optimizer, err := optimization.NewOptimizer(optimization.DefaultOptions(), solver, zerolog.Nop())
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(optimizer, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func fixedSolver(weights ...float64) optimization.Solver {
	return optimization.SolverFunc(func(ctx context.Context, p optimization.Problem) ([]float64, error) {
		return weights, nil
	})
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: v}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
}

func TestHandleOptimize(t *testing.T) {
	router := newTestRouter(t, fixedSolver(1, 0, 0))

	w := post(router, "/portfolio/optimize", threeAssets)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ReportResponse
	decode(t, w, &resp)

	require.NotNil(t, resp.Report.Heuristic)
	hw := optimization.Weights(resp.Report.Heuristic.Assets)
	assert.InDelta(t, 0.10/0.23, hw[0], 1e-9)
	assert.InDelta(t, 0.05/0.23, hw[1], 1e-9)
	assert.InDelta(t, 0.08/0.23, hw[2], 1e-9)
	assert.InDelta(t, 1000*0.10/0.23, resp.Report.Heuristic.Assets[0].Amount, 1e-6)

	require.NotNil(t, resp.Report.Optimal)
	assert.Equal(t, []float64{1, 0, 0}, optimization.Weights(resp.Report.Optimal.Assets))
	require.NotNil(t, resp.Report.Reconciliation)
	assert.InDelta(t, 1-0.10/0.23, resp.Report.Reconciliation.MaxAbsWeightDiff, 1e-9)
	assert.Nil(t, resp.Report.OptimalError)
	assert.NotContains(t, advisory.Keys(resp.Advice), "portfolio.optimal_unavailable")
}

func TestHandleOptimize_SolverFailure(t *testing.T) {
	router := newTestRouter(t, optimization.SolverFunc(func(ctx context.Context, p optimization.Problem) ([]float64, error) {
		return nil, errors.New("did not converge")
	}))

	w := post(router, "/portfolio/optimize", threeAssets)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReportResponse
	decode(t, w, &resp)
	assert.Nil(t, resp.Report.Optimal)
	require.NotNil(t, resp.Report.OptimalError)
	assert.Equal(t, "solver_error", string(resp.Report.OptimalError.Kind))
	assert.Contains(t, advisory.Keys(resp.Advice), "portfolio.optimal_unavailable")
}

func TestHandleOptimal_Errors(t *testing.T) {
	tests := []struct {
		name   string
		solver optimization.Solver
		body   string
		status int
		kind   string
	}{
		{
			name:   "solver failure",
			solver: fixedSolver(0.5, 0.5, 0.5),
			body:   threeAssets,
			status: http.StatusBadGateway,
			kind:   "solver_error",
		},
		{
			name:   "infeasible bounds",
			solver: fixedSolver(1),
			body:   `{"assets": [{"expected_return": 0.1, "min_weight": 0, "max_weight": 0.5}]}`,
			status: http.StatusUnprocessableEntity,
			kind:   "infeasible",
		},
		{
			name:   "no assets",
			solver: fixedSolver(),
			body:   `{"assets": []}`,
			status: http.StatusBadRequest,
			kind:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.solver)
			w := post(router, "/portfolio/optimal", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"kind":"`+tt.kind+`"`)
		})
	}
}

func TestHandleHeuristic_InfeasibleBounds(t *testing.T) {
	router := newTestRouter(t, fixedSolver())

	body := `{"assets": [
		{"expected_return": 0.1, "min_weight": 0.7, "max_weight": 1},
		{"expected_return": 0.1, "min_weight": 0.7, "max_weight": 1}
	]}`
	w := post(router, "/portfolio/heuristic", body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"infeasible_bounds"`)
}

func TestHandleOptimal_ExplicitCovariance(t *testing.T) {
	var got mat.Symmetric
	router := newTestRouter(t, optimization.SolverFunc(func(ctx context.Context, p optimization.Problem) ([]float64, error) {
		got = p.Covariance
		return []float64{0.5, 0.5}, nil
	}))

	body := `{
		"assets": [
			{"expected_return": 0.1, "min_weight": 0, "max_weight": 1},
			{"expected_return": 0.1, "min_weight": 0, "max_weight": 1}
		],
		"covariance": [[0.04, 0.01], [0.01, 0.09]]
	}`
	w := post(router, "/portfolio/optimal", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, 0.09, got.At(1, 1))
	assert.Equal(t, 0.01, got.At(0, 1))
}
