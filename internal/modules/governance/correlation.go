package governance

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aristath/govsim/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// ScoreColumn is the optional dataset column carrying a precomputed governance score.
const ScoreColumn = "Governance_Score"

// Correlation relates governance scores to another metric across dataset rows.
type Correlation struct {
	Metric string `json:"metric"`
	// Observations counts rows where both values were numeric.
	Observations int `json:"observations"`
	// Coefficient is Pearson's r. It is zero when InsufficientVariation is set.
	Coefficient float64 `json:"coefficient"`
	// Intercept and Slope describe the least-squares line metric = Intercept + Slope × score.
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	// ScoreFilled is set when the dataset had no score column and every row used the supplied
	// score.
	ScoreFilled bool `json:"score_filled"`
	// InsufficientVariation is set when either series has at most one distinct value.
	InsufficientVariation bool `json:"insufficient_variation"`
}

// NumericColumns lists the columns whose non-empty cells all parse as numbers, excluding the
// score column.
func NumericColumns(table *Table) []string {
	var out []string
	for c, name := range table.Columns {
		if name == ScoreColumn {
			continue
		}
		numeric, seen := true, false
		for _, row := range table.Rows {
			if c >= len(row) || strings.TrimSpace(row[c]) == "" {
				continue
			}
			seen = true
			if _, err := parseCell(row[c]); err != nil {
				numeric = false
				break
			}
		}
		if numeric && seen {
			out = append(out, name)
		}
	}
	return out
}

// Correlate measures how the governance score moves with metric across the table's rows. When
// the table has no score column every row takes fallbackScore. Rows where either value is not
// numeric are dropped.
func Correlate(table *Table, metric string, fallbackScore float64) (*Correlation, error) {
	if table == nil {
		return nil, domain.NewValidationError("dataset", "no dataset provided")
	}
	if err := domain.CheckRange("governance_score", fallbackScore, MinScore, MaxScore); err != nil {
		return nil, err
	}

	metricIdx, scoreIdx := -1, -1
	for i, name := range table.Columns {
		switch name {
		case metric:
			if metricIdx < 0 {
				metricIdx = i
			}
		case ScoreColumn:
			if scoreIdx < 0 {
				scoreIdx = i
			}
		}
	}
	if metric == "" || metric == ScoreColumn || metricIdx < 0 {
		return nil, &domain.Error{
			Kind:   domain.KindMissingColumns,
			Field:  metric,
			Detail: fmt.Sprintf("dataset has no metric column %q", metric),
		}
	}

	result := &Correlation{Metric: metric, ScoreFilled: scoreIdx < 0}
	var xs, ys []float64
	for _, row := range table.Rows {
		if metricIdx >= len(row) {
			continue
		}
		y, err := parseCell(row[metricIdx])
		if err != nil {
			continue
		}
		x := fallbackScore
		if scoreIdx >= 0 {
			if scoreIdx >= len(row) {
				continue
			}
			if x, err = parseCell(row[scoreIdx]); err != nil {
				continue
			}
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	result.Observations = len(xs)

	if distinct(xs) <= 1 || distinct(ys) <= 1 {
		result.InsufficientVariation = true
		return result, nil
	}

	result.Coefficient = stat.Correlation(xs, ys, nil)
	result.Intercept, result.Slope = stat.LinearRegression(xs, ys, nil, false)
	return result, nil
}

func parseCell(cell string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", cell)
	}
	return v, nil
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
