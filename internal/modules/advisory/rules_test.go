package advisory

import (
	"testing"

	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/stretchr/testify/assert"
)

func TestRuleSet_EvaluateInOrder(t *testing.T) {
	rules := RuleSet[int]{
		{Key: "positive", Severity: SeverityInfo, When: func(v int) bool { return v > 0 }},
		{Key: "even", Severity: SeverityWarning, When: func(v int) bool { return v%2 == 0 }},
		{Key: "large", Severity: SeverityCritical, When: func(v int) bool { return v > 100 }},
	}

	assert.Equal(t, []Advice{{"positive", SeverityInfo}, {"even", SeverityWarning}}, rules.Evaluate(4))
	assert.Equal(t, []string{"positive"}, Keys(rules.Evaluate(3)))
	assert.NotNil(t, rules.Evaluate(-1))
	assert.Empty(t, rules.Evaluate(-1))
}

func TestGovernanceRules(t *testing.T) {
	tests := []struct {
		name     string
		profile  governance.Profile
		score    float64
		expected []string
	}{
		{
			name:     "reference profile",
			profile:  governance.Profile{Transparency: 6, BoardIndependence: 5, AuditCommittee: 7, RiskCommittee: 4, ShareholderRights: 6},
			score:    5.65,
			expected: []string{"governance.moderate", "governance.improve.risk_committee"},
		},
		{
			name:     "strong",
			profile:  governance.Profile{Transparency: 9, BoardIndependence: 9, AuditCommittee: 8, RiskCommittee: 8, ShareholderRights: 8},
			score:    8.5,
			expected: []string{"governance.strong"},
		},
		{
			name:     "weak",
			profile:  governance.Profile{Transparency: 2, BoardIndependence: 3, AuditCommittee: 5, RiskCommittee: 9, ShareholderRights: 1},
			score:    4,
			expected: []string{"governance.weak", "governance.improve.transparency", "governance.improve.board_independence", "governance.improve.shareholder_rights"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &governance.Assessment{Profile: tt.profile, Score: tt.score}
			assert.Equal(t, tt.expected, Keys(GovernanceRules().Evaluate(a)))
		})
	}
}

func TestShockRules(t *testing.T) {
	rules := ShockRules(shock.DefaultImpacts().Types())

	tests := []struct {
		name     string
		outcome  shock.Outcome
		expected []string
	}{
		{"reference outcome", shock.Outcome{ShockType: shock.OperationalLoss, GovernanceScore: 5.65, DurationDays: 7.52},
			[]string{"shock.recovery.moderate", "shock.strengthen_governance", "shock.advice.operational_loss"}},
		{"boundary seven days", shock.Outcome{ShockType: shock.LiquidityDrop, GovernanceScore: 8, DurationDays: 7},
			[]string{"shock.recovery.fast", "shock.advice.liquidity_drop"}},
		{"slow", shock.Outcome{ShockType: shock.RegulatoryTightening, GovernanceScore: 6, DurationDays: 30},
			[]string{"shock.recovery.slow", "shock.advice.regulatory_tightening"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.outcome
			assert.Equal(t, tt.expected, Keys(rules.Evaluate(&o)))
		})
	}
}

func TestDatasetRules(t *testing.T) {
	assert.Equal(t, []string{"dataset.strong"}, Keys(DatasetRules().Evaluate(&governance.DatasetResult{MeanScore: 8})))
	assert.Equal(t, []string{"dataset.moderate"}, Keys(DatasetRules().Evaluate(&governance.DatasetResult{MeanScore: 7.99})))
	assert.Equal(t, []string{"dataset.weak"}, Keys(DatasetRules().Evaluate(&governance.DatasetResult{MeanScore: 4.9})))
}

func TestCorrelationRules(t *testing.T) {
	tests := []struct {
		c        governance.Correlation
		expected string
	}{
		{governance.Correlation{Coefficient: 0.9}, "correlation.strong"},
		{governance.Correlation{Coefficient: 0.4}, "correlation.moderate"},
		{governance.Correlation{Coefficient: 0.25}, "correlation.weak"},
		{governance.Correlation{Coefficient: -0.8}, "correlation.none"},
		{governance.Correlation{InsufficientVariation: true}, "correlation.insufficient_variation"},
	}

	for _, tt := range tests {
		c := tt.c
		assert.Equal(t, []string{tt.expected}, Keys(CorrelationRules().Evaluate(&c)))
	}
}

func TestAllocationRules(t *testing.T) {
	assert.Equal(t, []string{"allocation.no_eligible_units"},
		Keys(AllocationRules().Evaluate(&allocation.Plan{NoEligibleUnits: true, UnallocatedCapital: 100})))
	assert.Equal(t, []string{"allocation.concentration", "allocation.unallocated_capital"},
		Keys(AllocationRules().Evaluate(&allocation.Plan{ConcentratedUnits: []string{"unit-1"}, UnallocatedCapital: 40})))
	assert.Empty(t, AllocationRules().Evaluate(&allocation.Plan{ConcentratedUnits: []string{}}))
}

func TestPortfolioRules(t *testing.T) {
	report := &optimization.Report{
		Heuristic: &optimization.HeuristicResult{
			Metrics:      optimization.Metrics{Sharpe: 0.8},
			WithinBounds: true,
		},
	}
	assert.Equal(t, []string{"portfolio.sharpe.low", "portfolio.optimal_unavailable"}, Keys(PortfolioRules().Evaluate(report)))

	report.Heuristic.Metrics.Sharpe = 1.2
	report.Heuristic.EqualWeightBaseline = true
	report.Heuristic.WithinBounds = false
	report.Optimal = &optimization.OptimalResult{}
	assert.Equal(t, []string{"portfolio.sharpe.adequate", "portfolio.equal_weight_baseline", "portfolio.heuristic_outside_bounds"},
		Keys(PortfolioRules().Evaluate(report)))
}
