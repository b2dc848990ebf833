package analysis

import (
	"log"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/dagim-a/solar-data-dashboard/internal/dataset"
)

// MeasurementColumns are the known measurement columns eligible for median
// imputation. Columns absent from a dataset are silently skipped.
var MeasurementColumns = []string{
	"GHI", "DNI", "DHI", "ModA", "ModB", "WS", "WSgust",
	"Tamb", "RH", "BP", "TModA", "TModB",
}

// NonNegativeColumns are physical quantities that cannot be negative;
// negative readings are clamped to zero.
var NonNegativeColumns = []string{
	"GHI", "DNI", "DHI", "ModA", "ModB", "WS", "WSgust", "Precipitation",
}

// CleaningColumn marks every row of a cleaned table.
const CleaningColumn = "Cleaning"

const cleaningMarker = "Post-Clean"

// CleanResult describes what the cleaning pass changed.
type CleanResult struct {
	Rows           int                `json:"rows"`
	ImputedColumns map[string]float64 `json:"imputedColumns"` // column -> median used
	ClampedColumns map[string]int     `json:"clampedColumns"` // column -> cells clamped
}

// CleanTable produces a cleaned copy of t: missing values in the known
// measurement columns are replaced by each column's median (computed from
// the pre-cleaning values, missing cells ignored), negative values in the
// known non-negative columns are clamped to zero, and the Cleaning marker
// column is added (or overwritten). Rows are never removed.
func CleanTable(t *dataset.Table) (*dataset.Table, *CleanResult, error) {
	cleaned := t.Copy()
	result := &CleanResult{
		Rows:           cleaned.Nrow(),
		ImputedColumns: make(map[string]float64),
		ClampedColumns: make(map[string]int),
	}

	for _, name := range MeasurementColumns {
		if !cleaned.HasColumn(name) {
			continue
		}
		vals, err := cleaned.Column(name)
		if err != nil {
			return nil, nil, err
		}

		present := dataset.DropNaN(vals)
		if len(present) == 0 || len(present) == len(vals) {
			continue
		}
		median, err := stats.Median(present)
		if err != nil {
			return nil, nil, err
		}

		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = median
			}
		}
		if err := cleaned.SetFloatColumn(name, vals); err != nil {
			return nil, nil, err
		}
		result.ImputedColumns[name] = median
	}

	for _, name := range NonNegativeColumns {
		if !cleaned.HasColumn(name) {
			continue
		}
		vals, err := cleaned.Column(name)
		if err != nil {
			return nil, nil, err
		}

		clamped := 0
		for i, v := range vals {
			if !math.IsNaN(v) && v < 0 {
				vals[i] = 0
				clamped++
			}
		}
		if clamped == 0 {
			continue
		}
		if err := cleaned.SetFloatColumn(name, vals); err != nil {
			return nil, nil, err
		}
		result.ClampedColumns[name] = clamped
	}

	marker := make([]string, cleaned.Nrow())
	for i := range marker {
		marker[i] = cleaningMarker
	}
	if err := cleaned.SetStringColumn(CleaningColumn, marker); err != nil {
		return nil, nil, err
	}

	return cleaned, result, nil
}

// Clean runs CleanTable on the raw table and keeps the derived copy.
func (a *Analyzer) Clean() (*CleanResult, error) {
	if a.raw == nil {
		return nil, ErrNotLoaded
	}

	cleaned, result, err := CleanTable(a.raw)
	if err != nil {
		return nil, err
	}
	a.cleaned = cleaned
	log.Printf("INFO: data cleaned: %d records for %s", result.Rows, a.country)
	return result, nil
}

// ExportCleaned writes the cleaned table to path, creating parent
// directories as needed. Clean must have run first.
func (a *Analyzer) ExportCleaned(path string) error {
	if a.cleaned == nil {
		return ErrNotCleaned
	}
	return a.cleaned.WriteCSV(path)
}
