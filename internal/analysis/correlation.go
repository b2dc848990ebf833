package analysis

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/dagim-a/solar-data-dashboard/internal/dataset"
)

// Matrix is a symmetric Pearson correlation matrix. Values[i][j] is the
// correlation between Columns[i] and Columns[j]; undefined entries (zero
// variance, fewer than two complete observations) are NaN.
type Matrix struct {
	Columns []string          `json:"columns"`
	Values  [][]dataset.Float `json:"values"`
}

// At returns the correlation between row i and column j.
func (m *Matrix) At(i, j int) float64 {
	return float64(m.Values[i][j])
}

// CorrelationPair is one strongly correlated column pair.
type CorrelationPair struct {
	ColumnA     string  `json:"columnA"`
	ColumnB     string  `json:"columnB"`
	Correlation float64 `json:"correlation"`
}

// CorrelationAnalyzer computes Pearson correlations over a table.
type CorrelationAnalyzer struct {
	table *dataset.Table
}

// NewCorrelationAnalyzer wraps a loaded table.
func NewCorrelationAnalyzer(t *dataset.Table) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{table: t}
}

// AnalyzeCorrelations computes the correlation matrix restricted to the
// requested columns that exist in the table. At least two of them must
// exist.
func (c *CorrelationAnalyzer) AnalyzeCorrelations(columns []string) (*Matrix, error) {
	var available []string
	for _, name := range columns {
		if c.table.HasColumn(name) {
			available = append(available, name)
		}
	}
	if len(available) < 2 {
		return nil, ErrInsufficientColumns
	}
	return c.matrix(available)
}

// StrongCorrelations computes the full correlation matrix over all numeric
// columns and returns every unordered pair whose absolute correlation
// exceeds threshold, enumerated in upper-triangular order.
func (c *CorrelationAnalyzer) StrongCorrelations(threshold float64) ([]CorrelationPair, error) {
	numeric := c.table.NumericColumns()
	if len(numeric) < 2 {
		return []CorrelationPair{}, nil
	}

	m, err := c.matrix(numeric)
	if err != nil {
		return nil, err
	}

	pairs := []CorrelationPair{}
	for i := 0; i < len(m.Columns); i++ {
		for j := i + 1; j < len(m.Columns); j++ {
			r := m.At(i, j)
			if math.Abs(r) > threshold {
				pairs = append(pairs, CorrelationPair{
					ColumnA:     m.Columns[i],
					ColumnB:     m.Columns[j],
					Correlation: r,
				})
			}
		}
	}
	return pairs, nil
}

func (c *CorrelationAnalyzer) matrix(columns []string) (*Matrix, error) {
	data := make([][]float64, len(columns))
	for i, name := range columns {
		vals, err := c.table.Column(name)
		if err != nil {
			return nil, err
		}
		data[i] = vals
	}

	n := len(columns)
	values := make([][]dataset.Float, n)
	for i := range values {
		values[i] = make([]dataset.Float, n)
	}

	for i := 0; i < n; i++ {
		values[i][i] = dataset.Float(selfCorrelation(data[i]))
		for j := i + 1; j < n; j++ {
			r := pairwisePearson(data[i], data[j])
			values[i][j] = dataset.Float(r)
			values[j][i] = dataset.Float(r)
		}
	}

	return &Matrix{Columns: columns, Values: values}, nil
}

// selfCorrelation is 1.0 for any column with nonzero variance, NaN otherwise.
func selfCorrelation(vals []float64) float64 {
	present := dataset.DropNaN(vals)
	if len(present) < 2 {
		return math.NaN()
	}
	std, err := stats.StandardDeviation(present)
	if err != nil || std == 0 {
		return math.NaN()
	}
	return 1.0
}

// pairwisePearson computes Pearson correlation over rows where both values
// are present.
func pairwisePearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil {
		return math.NaN()
	}
	return r
}
