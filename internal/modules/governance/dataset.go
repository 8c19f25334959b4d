package governance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aristath/govsim/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DatasetColumns are the column identifiers a governance dataset must carry,
// in canonical indicator order.
var DatasetColumns = []string{
	"Transparency",
	"Board_Independence",
	"Audit_Committee",
	"Risk_Committee",
	"Shareholder_Rights",
}

// Table is a header plus string cells, as produced by a tabular reader.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// RowScore is the governance score of one dataset row.
type RowScore struct {
	Row   int     `json:"row"` // 1-based, header excluded
	Score float64 `json:"score"`
}

// DatasetResult holds per-row scores and their summary.
type DatasetResult struct {
	Rows      []RowScore `json:"rows"`
	MeanScore float64    `json:"mean_score"`
	MinScore  float64    `json:"min_score"`
	MaxScore  float64    `json:"max_score"`
}

// ReadCSV parses a CSV document into a Table.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("dataset", "empty document")
	}
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "failed to read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.KindValidation, err, "failed to read row %d", len(table.Rows)+1)
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// columnIndexes maps each required column to its position, or reports the missing ones.
func columnIndexes(columns []string) ([]int, error) {
	positions := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	indexes := make([]int, len(DatasetColumns))
	var missing []string
	for i, name := range DatasetColumns {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		indexes[i] = pos
	}
	if len(missing) > 0 {
		return nil, &domain.Error{
			Kind:   domain.KindMissingColumns,
			Field:  strings.Join(missing, ","),
			Detail: fmt.Sprintf("dataset must contain columns %s", strings.Join(DatasetColumns, ", ")),
		}
	}
	return indexes, nil
}

// ScoreDataset maps every row of the table to a governance score using the scorer weighting.
func (s *Scorer) ScoreDataset(table *Table) (*DatasetResult, error) {
	if table == nil {
		return nil, domain.NewValidationError("dataset", "no dataset provided")
	}

	indexes, err := columnIndexes(table.Columns)
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, domain.NewValidationError("dataset", "dataset has no rows")
	}

	scores := make([]float64, len(table.Rows))
	rows := make([]RowScore, len(table.Rows))
	values := make([]float64, len(DatasetColumns))
	for r, record := range table.Rows {
		for i, idx := range indexes {
			field := fmt.Sprintf("row %d %s", r+1, DatasetColumns[i])
			if idx >= len(record) {
				return nil, domain.NewValidationError(field, "missing value")
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				return nil, domain.NewValidationError(field, "not a number: %q", record[idx])
			}
			if err := domain.CheckRange(field, v, MinScore, MaxScore); err != nil {
				return nil, err
			}
			values[i] = v
		}
		scores[r] = s.WeightedScore(values)
		rows[r] = RowScore{Row: r + 1, Score: scores[r]}
	}

	return &DatasetResult{
		Rows:      rows,
		MeanScore: stat.Mean(scores, nil),
		MinScore:  floats.Min(scores),
		MaxScore:  floats.Max(scores),
	}, nil
}
