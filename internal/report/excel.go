package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/dagim-a/solar-data-dashboard/internal/analysis"
)

// WriteWorkbook writes one analysis session's results into an xlsx workbook
// with Summary, Missing Values, Strong Correlations, and Quality sheets.
// Parent directories are created as needed.
func WriteWorkbook(path, country string, results *analysis.Results,
	pairs []analysis.CorrelationPair, score analysis.QualityScore) error {

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}

	writeRow(f, summarySheet, 1, "Country", country)
	writeRow(f, summarySheet, 3, "Column", "Count", "Mean", "Std", "Min", "25%", "Median", "75%", "Max")
	row := 4
	if results != nil {
		for _, s := range results.Summary {
			writeRow(f, summarySheet, row, s.Column, s.Count,
				cellFloat(float64(s.Mean)), cellFloat(float64(s.Std)),
				cellFloat(float64(s.Min)), cellFloat(float64(s.Q25)),
				cellFloat(float64(s.Median)), cellFloat(float64(s.Q75)),
				cellFloat(float64(s.Max)))
			row++
		}
	}

	const missingSheet = "Missing Values"
	if _, err := f.NewSheet(missingSheet); err != nil {
		return err
	}
	writeRow(f, missingSheet, 1, "Column", "Missing Count", "Missing %")
	row = 2
	if results != nil && results.Missing != nil {
		for _, c := range results.Missing.Columns {
			writeRow(f, missingSheet, row, c.Column, c.MissingCount, c.MissingPercent)
			row++
		}
		row++
		writeRow(f, missingSheet, row, "Overall Completeness", results.Missing.OverallCompleteness)
	}

	const corrSheet = "Strong Correlations"
	if _, err := f.NewSheet(corrSheet); err != nil {
		return err
	}
	writeRow(f, corrSheet, 1, "Column A", "Column B", "Correlation")
	for i, p := range pairs {
		writeRow(f, corrSheet, i+2, p.ColumnA, p.ColumnB, p.Correlation)
	}

	const qualitySheet = "Quality"
	if _, err := f.NewSheet(qualitySheet); err != nil {
		return err
	}
	writeRow(f, qualitySheet, 1, "Completeness", score.Completeness)
	writeRow(f, qualitySheet, 2, "Outlier Rate", score.OutlierRate)
	writeRow(f, qualitySheet, 3, "Quality Score", score.QualityScore)

	return f.SaveAs(path)
}

// writeRow writes values into consecutive cells of one row.
func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			continue
		}
		// SetCellValue only fails on an invalid sheet or cell, both fixed here.
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// cellFloat renders NaN as an empty cell instead of an invalid number.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

// DefaultReportName builds a file name for a session's report.
func DefaultReportName(dataset string) string {
	base := dataset
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return fmt.Sprintf("%s_analysis_report.xlsx", base)
}
