package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/advisory"
	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/modules/optimization"
	"github.com/aristath/govsim/internal/modules/shock"
)

// planFile is the input of the allocate command.
type planFile struct {
	Params    allocation.Params      `json:"params"`
	ShockType shock.Type             `json:"shock_type,omitempty"`
	Units     []allocation.UnitInput `json:"units"`
}

// portfolioFile is the input of the portfolio command.
type portfolioFile struct {
	optimization.Portfolio
	Covariance [][]float64 `json:"covariance,omitempty"`
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return codeError(exitFailure, "writing output: %s", err)
	}
	return nil
}

func (a *app) decodeJSON(path string, v interface{}) error {
	r, err := a.open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return codeError(exitInvalid, "%s: input is empty", path)
		}
		return codeError(exitInvalid, "%s: %s", path, err)
	}
	return nil
}

func (a *app) readTable(path string) (*governance.Table, error) {
	r, err := a.open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	table, err := governance.ReadCSV(r)
	if err != nil {
		return nil, failure(err)
	}
	return table, nil
}

func (a *app) scoreCommand() *cobra.Command {
	var profile governance.Profile
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a governance profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			assessment, err := c.Scorer.Score(profile)
			if err != nil {
				return failure(err)
			}
			return a.print(map[string]interface{}{
				"assessment": assessment,
				"advice":     advisory.GovernanceRules().Evaluate(assessment),
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&profile.Transparency, "transparency", 0, "Transparency sub-score (0-10)")
	f.Float64Var(&profile.BoardIndependence, "board-independence", 0, "Board independence sub-score (0-10)")
	f.Float64Var(&profile.AuditCommittee, "audit-committee", 0, "Audit committee sub-score (0-10)")
	f.Float64Var(&profile.RiskCommittee, "risk-committee", 0, "Risk committee sub-score (0-10)")
	f.Float64Var(&profile.ShareholderRights, "shareholder-rights", 0, "Shareholder rights sub-score (0-10)")
	for _, name := range []string{"transparency", "board-independence", "audit-committee", "risk-committee", "shareholder-rights"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) datasetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dataset <csv-file|->",
		Short: "Score every row of a governance dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			table, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			result, err := c.Scorer.ScoreDataset(table)
			if err != nil {
				return failure(err)
			}
			return a.print(map[string]interface{}{
				"result": result,
				"advice": advisory.DatasetRules().Evaluate(result),
			})
		},
	}
}

func (a *app) correlateCommand() *cobra.Command {
	var (
		metric string
		score  float64
	)
	cmd := &cobra.Command{
		Use:   "correlate <csv-file|->",
		Short: "Correlate governance scores with a performance metric",
		Long:  "Datasets without a Governance_Score column need --governance-score, which fills every row.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("governance-score") && !hasColumn(table, governance.ScoreColumn) {
				return failure(domain.NewValidationError("governance_score",
					"dataset has no %s column and --governance-score is not set", governance.ScoreColumn))
			}
			result, err := governance.Correlate(table, metric, score)
			if err != nil {
				return failure(err)
			}
			return a.print(map[string]interface{}{
				"correlation":     result,
				"numeric_columns": governance.NumericColumns(table),
				"advice":          advisory.CorrelationRules().Evaluate(result),
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&metric, "metric", "", "Performance metric column")
	f.Float64Var(&score, "governance-score", 0, "Score used when the dataset has no Governance_Score column")
	_ = cmd.MarkFlagRequired("metric")
	return cmd
}

func (a *app) shockCommand() *cobra.Command {
	var (
		capital   float64
		score     float64
		shockType string
		withPath  bool
	)
	cmd := &cobra.Command{
		Use:   "shock",
		Short: "Simulate the adjustment to a shock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			outcome, err := c.ShockModel.Simulate(capital, score, shock.Type(shockType))
			if err != nil {
				return failure(err)
			}

			result := map[string]interface{}{
				"outcome": outcome,
				"advice":  advisory.ShockRules(c.ShockModel.Impacts().Types()).Evaluate(outcome),
			}
			if withPath {
				path, err := c.ShockModel.Path(outcome.Capital, outcome.DurationDays)
				if err != nil {
					return failure(err)
				}
				result["path"] = path
			}
			return a.print(result)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&capital, "capital", 0, "Capital exposed to the shock")
	f.Float64Var(&score, "governance-score", 0, "Governance score (0-10)")
	f.StringVar(&shockType, "type", "", "Shock type, e.g. liquidity_drop")
	f.BoolVar(&withPath, "path", false, "Include the projected capital by day")
	for _, name := range []string{"capital", "governance-score", "type"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) allocateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "allocate <plan.json|->",
		Short: "Allocate capital across units by governance score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			var in planFile
			if err := a.decodeJSON(args[0], &in); err != nil {
				return err
			}
			params, err := allocation.ResolveShock(in.Params, in.ShockType, c.ShockModel.Impacts())
			if err != nil {
				return failure(err)
			}
			plan, err := c.Allocator.Allocate(params, in.Units)
			if err != nil {
				return failure(err)
			}
			return a.print(map[string]interface{}{
				"plan":   plan,
				"advice": advisory.AllocationRules().Evaluate(plan),
			})
		},
	}
}

func (a *app) portfolioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio <portfolio.json|->",
		Short: "Run the heuristic and mean-variance portfolio optimizers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.services()
			if err != nil {
				return err
			}
			var in portfolioFile
			if err := a.decodeJSON(args[0], &in); err != nil {
				return err
			}
			portfolio := in.Portfolio
			if len(in.Covariance) > 0 {
				cov, err := optimization.CovarianceFromRows(in.Covariance)
				if err != nil {
					return failure(err)
				}
				portfolio.Covariance = cov
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			report, err := c.Optimizer.Optimize(ctx, portfolio)
			if err != nil {
				return failure(err)
			}
			return a.print(map[string]interface{}{
				"report": report,
				"advice": advisory.PortfolioRules().Evaluate(report),
			})
		},
	}
}

func hasColumn(table *governance.Table, name string) bool {
	for _, c := range table.Columns {
		if c == name {
			return true
		}
	}
	return false
}
