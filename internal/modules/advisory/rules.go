package advisory

import (
	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/modules/shock"
)

// Score bands shared by assessments and datasets.
const (
	StrongScore   = 8.0
	ModerateScore = 5.0
	// ImproveBelow flags sub-indicators that drag the score down.
	ImproveBelow = 5.0
)

// Recovery bands in days and the governance level below which a shock calls for reform.
const (
	FastRecoveryDays     = 7.0
	ModerateRecoveryDays = 14.0
	ShockGovernanceFloor = 6.0
)

// Correlation bands on Pearson's r.
const (
	StrongCorrelation   = 0.7
	ModerateCorrelation = 0.4
	WeakCorrelation     = 0.2
)

// AdequateSharpe is the lowest Sharpe ratio not flagged as low.
const AdequateSharpe = 1.0

// GovernanceRules grade an assessment and flag weak sub-indicators.
func GovernanceRules() RuleSet[*governance.Assessment] {
	rules := RuleSet[*governance.Assessment]{
		{Key: "governance.strong", Severity: SeveritySuccess, When: func(a *governance.Assessment) bool {
			return a.Score >= StrongScore
		}},
		{Key: "governance.moderate", Severity: SeverityInfo, When: func(a *governance.Assessment) bool {
			return a.Score >= ModerateScore && a.Score < StrongScore
		}},
		{Key: "governance.weak", Severity: SeverityCritical, When: func(a *governance.Assessment) bool {
			return a.Score < ModerateScore
		}},
	}
	for i, ind := range governance.Indicators {
		rules = append(rules, Rule[*governance.Assessment]{
			Key:      "governance.improve." + string(ind),
			Severity: SeverityWarning,
			When: func(a *governance.Assessment) bool {
				return a.Profile.AsList()[i] < ImproveBelow
			},
		})
	}
	return rules
}

// ShockRules grade the recovery time and add per-shock guidance.
func ShockRules(types []shock.Type) RuleSet[*shock.Outcome] {
	rules := RuleSet[*shock.Outcome]{
		{Key: "shock.recovery.fast", Severity: SeveritySuccess, When: func(o *shock.Outcome) bool {
			return o.DurationDays <= FastRecoveryDays
		}},
		{Key: "shock.recovery.moderate", Severity: SeverityWarning, When: func(o *shock.Outcome) bool {
			return o.DurationDays > FastRecoveryDays && o.DurationDays <= ModerateRecoveryDays
		}},
		{Key: "shock.recovery.slow", Severity: SeverityCritical, When: func(o *shock.Outcome) bool {
			return o.DurationDays > ModerateRecoveryDays
		}},
		{Key: "shock.strengthen_governance", Severity: SeverityWarning, When: func(o *shock.Outcome) bool {
			return o.GovernanceScore < ShockGovernanceFloor
		}},
	}
	for _, st := range types {
		rules = append(rules, Rule[*shock.Outcome]{
			Key:      "shock.advice." + string(st),
			Severity: SeverityInfo,
			When:     func(o *shock.Outcome) bool { return o.ShockType == st },
		})
	}
	return rules
}

// DatasetRules grade the mean score of a scored dataset.
func DatasetRules() RuleSet[*governance.DatasetResult] {
	return RuleSet[*governance.DatasetResult]{
		{Key: "dataset.strong", Severity: SeveritySuccess, When: func(d *governance.DatasetResult) bool {
			return d.MeanScore >= StrongScore
		}},
		{Key: "dataset.moderate", Severity: SeverityInfo, When: func(d *governance.DatasetResult) bool {
			return d.MeanScore >= ModerateScore && d.MeanScore < StrongScore
		}},
		{Key: "dataset.weak", Severity: SeverityCritical, When: func(d *governance.DatasetResult) bool {
			return d.MeanScore < ModerateScore
		}},
	}
}

// CorrelationRules grade the strength of a score/metric relationship.
func CorrelationRules() RuleSet[*governance.Correlation] {
	measured := func(c *governance.Correlation) bool { return !c.InsufficientVariation }
	return RuleSet[*governance.Correlation]{
		{Key: "correlation.insufficient_variation", Severity: SeverityWarning, When: func(c *governance.Correlation) bool {
			return c.InsufficientVariation
		}},
		{Key: "correlation.strong", Severity: SeveritySuccess, When: func(c *governance.Correlation) bool {
			return measured(c) && c.Coefficient >= StrongCorrelation
		}},
		{Key: "correlation.moderate", Severity: SeverityInfo, When: func(c *governance.Correlation) bool {
			return measured(c) && c.Coefficient >= ModerateCorrelation && c.Coefficient < StrongCorrelation
		}},
		{Key: "correlation.weak", Severity: SeverityWarning, When: func(c *governance.Correlation) bool {
			return measured(c) && c.Coefficient >= WeakCorrelation && c.Coefficient < ModerateCorrelation
		}},
		{Key: "correlation.none", Severity: SeverityCritical, When: func(c *governance.Correlation) bool {
			return measured(c) && c.Coefficient < WeakCorrelation
		}},
	}
}

// AllocationRules surface the warnings of an allocation plan.
func AllocationRules() RuleSet[*allocation.Plan] {
	return RuleSet[*allocation.Plan]{
		{Key: "allocation.no_eligible_units", Severity: SeverityCritical, When: func(p *allocation.Plan) bool {
			return p.NoEligibleUnits
		}},
		{Key: "allocation.concentration", Severity: SeverityWarning, When: func(p *allocation.Plan) bool {
			return len(p.ConcentratedUnits) > 0
		}},
		{Key: "allocation.unallocated_capital", Severity: SeverityWarning, When: func(p *allocation.Plan) bool {
			return !p.NoEligibleUnits && p.UnallocatedCapital > 1e-6
		}},
	}
}

// PortfolioRules grade risk-adjusted return and report optimizer fallbacks.
func PortfolioRules() RuleSet[*optimization.Report] {
	return RuleSet[*optimization.Report]{
		{Key: "portfolio.sharpe.low", Severity: SeverityWarning, When: func(r *optimization.Report) bool {
			return r.Heuristic.Metrics.Sharpe < AdequateSharpe
		}},
		{Key: "portfolio.sharpe.adequate", Severity: SeveritySuccess, When: func(r *optimization.Report) bool {
			return r.Heuristic.Metrics.Sharpe >= AdequateSharpe
		}},
		{Key: "portfolio.equal_weight_baseline", Severity: SeverityWarning, When: func(r *optimization.Report) bool {
			return r.Heuristic.EqualWeightBaseline
		}},
		{Key: "portfolio.heuristic_outside_bounds", Severity: SeverityWarning, When: func(r *optimization.Report) bool {
			return !r.Heuristic.WithinBounds
		}},
		{Key: "portfolio.optimal_unavailable", Severity: SeverityCritical, When: func(r *optimization.Report) bool {
			return r.Optimal == nil
		}},
	}
}
