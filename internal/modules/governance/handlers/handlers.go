// Package handlers provides HTTP handlers for governance scoring and dataset analysis.
package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	s3client "github.com/aristath/govsim/internal/clients/s3"
	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/advisory"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/render"
	"github.com/aristath/govsim/internal/session"
	"github.com/rs/zerolog"
)

// maxDatasetBytes caps uploaded CSV documents.
const maxDatasetBytes = 10 << 20

// DatasetSource fetches stored datasets by key.
type DatasetSource interface {
	Fetch(ctx context.Context, key string) (*governance.Table, error)
	List(ctx context.Context, prefix string) ([]s3client.DatasetObject, error)
}

// Handler handles governance HTTP requests
type Handler struct {
	scorer      *governance.Scorer
	sessions    *session.Store
	datasets    DatasetSource
	rules       advisory.RuleSet[*governance.Assessment]
	dataset     advisory.RuleSet[*governance.DatasetResult]
	correlation advisory.RuleSet[*governance.Correlation]
	log         zerolog.Logger
}

// NewHandler creates a new governance handler. datasets may be nil when no store is configured.
func NewHandler(scorer *governance.Scorer, sessions *session.Store, datasets DatasetSource, log zerolog.Logger) *Handler {
	return &Handler{
		scorer:      scorer,
		sessions:    sessions,
		datasets:    datasets,
		rules:       advisory.GovernanceRules(),
		dataset:     advisory.DatasetRules(),
		correlation: advisory.CorrelationRules(),
		log:         log.With().Str("handler", "governance").Logger(),
	}
}

// AssessmentResponse is the body of a scoring response.
type AssessmentResponse struct {
	Assessment *governance.Assessment `json:"assessment"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Advice     []advisory.Advice      `json:"advice"`
}

// DatasetResponse is the body of a dataset scoring response.
type DatasetResponse struct {
	Result *governance.DatasetResult `json:"result"`
	Advice []advisory.Advice         `json:"advice"`
}

// CorrelationResponse is the body of a correlation response.
type CorrelationResponse struct {
	Correlation    *governance.Correlation `json:"correlation"`
	NumericColumns []string                `json:"numeric_columns"`
	Advice         []advisory.Advice       `json:"advice"`
}

var errNoStore = domain.NewValidationError("key", "no dataset store is configured")

// datasetRef selects a stored dataset instead of an uploaded one.
type datasetRef struct {
	Key string `json:"key"`
}

func (h *Handler) session(r *http.Request) *session.Session {
	return h.sessions.Get(r.Header.Get(session.Header))
}

// HandleGetWeights handles GET /api/governance/weights
func (h *Handler) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	render.Data(w, r, http.StatusOK, h.scorer.Weights(), h.log)
}

// HandleScore handles POST /api/governance/score
// The assessment replaces the one stored in the caller's session.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var profile governance.Profile
	if err := render.DecodeJSON(r, &profile); err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	assessment, err := h.scorer.Score(profile)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	sess := h.sessions.Record(r.Header.Get(session.Header), assessment)
	_, updatedAt, _ := sess.Assessment()

	render.Data(w, r, http.StatusOK, AssessmentResponse{
		Assessment: assessment,
		UpdatedAt:  updatedAt,
		Advice:     h.rules.Evaluate(assessment),
	}, h.log)
}

// HandleGetAssessment handles GET /api/governance/assessment
func (h *Handler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, updatedAt, err := h.session(r).Assessment()
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	render.Data(w, r, http.StatusOK, AssessmentResponse{
		Assessment: assessment,
		UpdatedAt:  updatedAt,
		Advice:     h.rules.Evaluate(assessment),
	}, h.log)
}

// HandleListDatasets handles GET /api/governance/datasets
func (h *Handler) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	if h.datasets == nil {
		render.Error(w, r, errNoStore, h.log)
		return
	}

	objects, err := h.datasets.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}
	if objects == nil {
		objects = []s3client.DatasetObject{}
	}

	render.Data(w, r, http.StatusOK, map[string]interface{}{
		"datasets": objects,
		"count":    len(objects),
	}, h.log)
}

// HandleScoreDataset handles POST /api/governance/datasets/score
// The body is a CSV document, or a JSON {"key": ...} naming a stored dataset.
func (h *Handler) HandleScoreDataset(w http.ResponseWriter, r *http.Request) {
	table, err := h.readTable(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	result, err := h.scorer.ScoreDataset(table)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	render.Data(w, r, http.StatusOK, DatasetResponse{
		Result: result,
		Advice: h.dataset.Evaluate(result),
	}, h.log)
}

// HandleCorrelate handles POST /api/governance/datasets/correlation?metric=<column>
// Datasets without a Governance_Score column use the governance_score query parameter, or the
// session score when that is absent.
func (h *Handler) HandleCorrelate(w http.ResponseWriter, r *http.Request) {
	table, err := h.readTable(r)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	fallback := governance.MinScore
	if !hasColumn(table, governance.ScoreColumn) {
		explicit, err := queryFloat(r, "governance_score")
		if err != nil {
			render.Error(w, r, err, h.log)
			return
		}
		if fallback, err = h.session(r).ResolveScore(explicit); err != nil {
			render.Error(w, r, err, h.log)
			return
		}
	}

	result, err := governance.Correlate(table, r.URL.Query().Get("metric"), fallback)
	if err != nil {
		render.Error(w, r, err, h.log)
		return
	}

	render.Data(w, r, http.StatusOK, CorrelationResponse{
		Correlation:    result,
		NumericColumns: governance.NumericColumns(table),
		Advice:         h.correlation.Evaluate(result),
	}, h.log)
}

func (h *Handler) readTable(r *http.Request) (*governance.Table, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != render.ContentTypeJSON {
		return governance.ReadCSV(io.LimitReader(r.Body, maxDatasetBytes))
	}

	var ref datasetRef
	if err := render.DecodeJSON(r, &ref); err != nil {
		return nil, err
	}
	if ref.Key == "" {
		return nil, domain.NewValidationError("key", "dataset key is required")
	}
	if h.datasets == nil {
		return nil, errNoStore
	}
	return h.datasets.Fetch(r.Context(), ref.Key)
}

func hasColumn(table *governance.Table, name string) bool {
	for _, c := range table.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewValidationError(name, "not a number: %q", raw)
	}
	return &v, nil
}
