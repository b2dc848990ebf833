package analysis

// ColumnMissing reports missing cells for a single column.
type ColumnMissing struct {
	Column         string  `json:"column"`
	MissingCount   int     `json:"missingCount"`
	MissingPercent float64 `json:"missingPercent"`
}

// MissingValueReport summarizes missing values across the whole table.
type MissingValueReport struct {
	Columns             []ColumnMissing `json:"columns"`
	CriticalColumns     []string        `json:"criticalColumns"`
	OverallCompleteness float64         `json:"overallCompleteness"`
	Threshold           float64         `json:"threshold"`
}

// AnalyzeMissingValues computes per-column missing counts and percentages,
// flags columns whose missing percentage exceeds threshold, and computes the
// overall completeness over the full rows x columns cell count.
func (a *Analyzer) AnalyzeMissingValues(threshold float64) (*MissingValueReport, error) {
	if a.raw == nil {
		return nil, ErrNotLoaded
	}

	rows := a.raw.Nrow()
	cols := a.raw.Columns()

	report := &MissingValueReport{Threshold: threshold}
	totalMissing := 0

	for _, name := range cols {
		count, err := a.raw.MissingCount(name)
		if err != nil {
			return nil, err
		}
		totalMissing += count

		percent := 0.0
		if rows > 0 {
			percent = float64(count) / float64(rows) * 100
		}

		report.Columns = append(report.Columns, ColumnMissing{
			Column:         name,
			MissingCount:   count,
			MissingPercent: percent,
		})
		if percent > threshold {
			report.CriticalColumns = append(report.CriticalColumns, name)
		}
	}

	totalCells := rows * len(cols)
	if totalCells > 0 {
		report.OverallCompleteness = 100 - float64(totalMissing)/float64(totalCells)*100
	} else {
		report.OverallCompleteness = 100
	}

	a.results.Missing = report
	return report, nil
}
