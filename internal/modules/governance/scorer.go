// Package governance computes the weighted governance quality score.
package governance

import (
	"fmt"
	"math"

	"github.com/aristath/govsim/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Score bounds shared by every sub-indicator and the derived score.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Indicator identifies one of the five governance sub-indicators.
type Indicator string

const (
	Transparency      Indicator = "transparency"
	BoardIndependence Indicator = "board_independence"
	AuditCommittee    Indicator = "audit_committee"
	RiskCommittee     Indicator = "risk_committee"
	ShareholderRights Indicator = "shareholder_rights"
)

// Indicators lists the sub-indicators in their canonical order.
var Indicators = []Indicator{
	Transparency,
	BoardIndependence,
	AuditCommittee,
	RiskCommittee,
	ShareholderRights,
}

// Weights holds the weight of each sub-indicator. Weights must sum to 1.0.
type Weights struct {
	Transparency      float64 `json:"transparency" yaml:"transparency"`
	BoardIndependence float64 `json:"board_independence" yaml:"board_independence"`
	AuditCommittee    float64 `json:"audit_committee" yaml:"audit_committee"`
	RiskCommittee     float64 `json:"risk_committee" yaml:"risk_committee"`
	ShareholderRights float64 `json:"shareholder_rights" yaml:"shareholder_rights"`
}

// DefaultWeights returns the fixed weighting 25/25/20/15/15.
func DefaultWeights() Weights {
	return Weights{
		Transparency:      0.25,
		BoardIndependence: 0.25,
		AuditCommittee:    0.20,
		RiskCommittee:     0.15,
		ShareholderRights: 0.15,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Transparency + w.BoardIndependence + w.AuditCommittee + w.RiskCommittee + w.ShareholderRights
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w Weights) Validate() error {
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return fmt.Errorf("governance weights sum to %.6f, must sum to 1.0", w.Sum())
	}
	for i, v := range w.AsList() {
		if v < 0 {
			return fmt.Errorf("negative governance weight for %s: %f", Indicators[i], v)
		}
	}
	return nil
}

// AsList returns the weights in canonical indicator order.
func (w Weights) AsList() []float64 {
	return []float64{w.Transparency, w.BoardIndependence, w.AuditCommittee, w.RiskCommittee, w.ShareholderRights}
}

// Profile is the set of five sub-scores of an institution, each in [0,10].
type Profile struct {
	Transparency      float64 `json:"transparency"`
	BoardIndependence float64 `json:"board_independence"`
	AuditCommittee    float64 `json:"audit_committee"`
	RiskCommittee     float64 `json:"risk_committee"`
	ShareholderRights float64 `json:"shareholder_rights"`
}

// AsList returns the sub-scores in canonical indicator order.
func (p Profile) AsList() []float64 {
	return []float64{p.Transparency, p.BoardIndependence, p.AuditCommittee, p.RiskCommittee, p.ShareholderRights}
}

// ProfileFromList builds a profile from sub-scores in canonical order.
func ProfileFromList(values []float64) (Profile, error) {
	if len(values) != len(Indicators) {
		return Profile{}, domain.NewValidationError("profile", "expected %d sub-scores, got %d", len(Indicators), len(values))
	}
	return Profile{
		Transparency:      values[0],
		BoardIndependence: values[1],
		AuditCommittee:    values[2],
		RiskCommittee:     values[3],
		ShareholderRights: values[4],
	}, nil
}

// Validate checks every sub-score lies in [0,10].
func (p Profile) Validate() error {
	for i, v := range p.AsList() {
		if err := domain.CheckRange(string(Indicators[i]), v, MinScore, MaxScore); err != nil {
			return err
		}
	}
	return nil
}

// Contribution is the share of the final score carried by one sub-indicator.
type Contribution struct {
	Indicator Indicator `json:"indicator"`
	SubScore  float64   `json:"sub_score"`
	Weight    float64   `json:"weight"`
	// ContributionPct is subscore × weight × 10, i.e. points out of 100.
	ContributionPct float64 `json:"contribution_pct"`
}

// Assessment is the immutable result of scoring a profile.
type Assessment struct {
	Profile       Profile        `json:"profile"`
	Score         float64        `json:"score"`
	Contributions []Contribution `json:"contributions"`
}

// Scorer computes weighted governance scores. It holds no mutable state.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights Weights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

// Weights returns the weighting used by the scorer.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score validates the profile and returns its weighted score and per-component contributions.
func (s *Scorer) Score(profile Profile) (*Assessment, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	values := profile.AsList()
	weights := s.weights.AsList()

	var score float64
	contributions := make([]Contribution, len(Indicators))
	for i, indicator := range Indicators {
		score += values[i] * weights[i]
		contributions[i] = Contribution{
			Indicator:       indicator,
			SubScore:        values[i],
			Weight:          weights[i],
			ContributionPct: values[i] * weights[i] * 10,
		}
	}

	return &Assessment{
		Profile:       profile,
		Score:         score,
		Contributions: contributions,
	}, nil
}

// WeightedScore returns the weighted sum of sub-scores in canonical order without validation.
// Used for dataset rows that were validated by the caller.
func (s *Scorer) WeightedScore(values []float64) float64 {
	return floats.Dot(values, s.weights.AsList())
}
