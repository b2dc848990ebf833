package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/dagim-a/solar-data-dashboard/internal/dataset"
)

// OutlierReport flags rows whose z-score exceeds a threshold in any of the
// analyzed columns.
type OutlierReport struct {
	Columns    []string `json:"columns"`
	Threshold  float64  `json:"threshold"`
	Mask       []bool   `json:"mask"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}

// DetectOutliers computes a per-row outlier flag across the requested
// columns. Each column's z-scores use that column's own mean and population
// standard deviation over its non-missing values; missing cells contribute
// no z-score. A row is flagged when any column's |z| exceeds zThreshold.
func (a *Analyzer) DetectOutliers(columns []string, zThreshold float64) (*OutlierReport, error) {
	if a.raw == nil {
		return nil, ErrNotLoaded
	}

	var available []string
	for _, c := range columns {
		if a.raw.HasColumn(c) {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return nil, ErrNoColumnsFound
	}

	rows := a.raw.Nrow()
	mask := make([]bool, rows)

	for _, name := range available {
		vals, err := a.raw.Column(name)
		if err != nil {
			return nil, err
		}

		present := dataset.DropNaN(vals)
		if len(present) == 0 {
			continue
		}
		mean, err := stats.Mean(present)
		if err != nil {
			continue
		}
		std, err := stats.StandardDeviation(present)
		if err != nil || std == 0 || math.IsNaN(std) {
			continue
		}

		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if math.Abs((v-mean)/std) > zThreshold {
				mask[i] = true
			}
		}
	}

	count := 0
	for _, m := range mask {
		if m {
			count++
		}
	}
	percentage := 0.0
	if rows > 0 {
		percentage = float64(count) / float64(rows) * 100
	}

	report := &OutlierReport{
		Columns:    available,
		Threshold:  zThreshold,
		Mask:       mask,
		Count:      count,
		Percentage: percentage,
	}
	a.results.Outliers = report
	return report, nil
}
