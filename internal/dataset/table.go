package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"

	"github.com/dagim-a/solar-data-dashboard/internal/common"
)

// ErrFileNotFound is returned when the source CSV path does not exist.
var ErrFileNotFound = errors.New("data file not found")

// ErrColumnNotFound is returned when a requested column is absent.
var ErrColumnNotFound = errors.New("column not found")

// nanTokens are cell values treated as missing when parsing CSV data.
var nanTokens = []string{"", "NA", "N/A", "NaN", "nan", "null"}

// Float is a float64 that marshals NaN and Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Table is an in-memory measurement table backed by a gota dataframe.
// Missing cells are represented as NaN regardless of column type.
type Table struct {
	df dataframe.DataFrame
}

// Load reads a CSV file into a Table. The file must exist.
func Load(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanTokens),
	)
	if df.Error() != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, df.Error())
	}

	return &Table{df: df}, nil
}

// FromRecords builds a Table from raw records (first row is the header).
func FromRecords(records [][]string) (*Table, error) {
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanTokens),
	)
	if df.Error() != nil {
		return nil, df.Error()
	}
	return &Table{df: df}, nil
}

// Nrow returns the number of data rows.
func (t *Table) Nrow() int { return t.df.Nrow() }

// Ncol returns the number of columns.
func (t *Table) Ncol() int { return t.df.Ncol() }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.df.Names() }

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// NumericColumns returns the names of int and float columns in table order.
func (t *Table) NumericColumns() []string {
	var cols []string
	types := t.df.Types()
	for i, name := range t.df.Names() {
		if types[i] == series.Float || types[i] == series.Int {
			cols = append(cols, name)
		}
	}
	return cols
}

// Column returns the named column as float64 values, NaN for missing cells.
func (t *Table) Column(name string) ([]float64, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return t.df.Col(name).Float(), nil
}

// Strings returns the named column as raw string records.
func (t *Table) Strings(name string) ([]string, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return t.df.Col(name).Records(), nil
}

// MissingMask returns one bool per row, true where the cell is missing.
func (t *Table) MissingMask(name string) ([]bool, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return t.df.Col(name).IsNaN(), nil
}

// MissingCount returns the number of missing cells in the named column.
func (t *Table) MissingCount(name string) (int, error) {
	mask, err := t.MissingMask(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n, nil
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	return &Table{df: t.df.Copy()}
}

// SetFloatColumn adds or replaces a float column.
func (t *Table) SetFloatColumn(name string, values []float64) error {
	df := t.df.Mutate(series.New(values, series.Float, name))
	if df.Error() != nil {
		return df.Error()
	}
	t.df = df
	return nil
}

// SetStringColumn adds or replaces a string column.
func (t *Table) SetStringColumn(name string, values []string) error {
	df := t.df.Mutate(series.New(values, series.String, name))
	if df.Error() != nil {
		return df.Error()
	}
	t.df = df
	return nil
}

// Records returns all rows as strings, including the header row.
func (t *Table) Records() [][]string {
	return t.df.Records()
}

// Head returns the header row plus up to n data rows.
func (t *Table) Head(n int) [][]string {
	records := t.df.Records()
	if n < 0 {
		n = 0
	}
	if n+1 < len(records) {
		return records[:n+1]
	}
	return records
}

// WriteCSV writes the table to path, creating parent directories as needed.
func (t *Table) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return t.df.WriteCSV(f, dataframe.WriteHeader(true))
}

// DetectCountryColumn finds the grouping column used for cross-country
// comparison: the first column whose name contains "country" or "nation",
// case-insensitively.
func (t *Table) DetectCountryColumn() (string, bool) {
	for _, name := range t.df.Names() {
		if common.HasAnyFold(name, "country", "nation") {
			return name, true
		}
	}
	return "", false
}

// ValueCount is the number of rows carrying one distinct value.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts tallies distinct non-missing values of a column, most
// frequent first (ties broken alphabetically for a stable order).
func (t *Table) ValueCounts(name string) ([]ValueCount, error) {
	records, err := t.Strings(name)
	if err != nil {
		return nil, err
	}
	mask, err := t.MissingMask(name)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for i, v := range records {
		if mask[i] {
			continue
		}
		counts[v]++
	}

	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}

// GroupStat summarizes one metric within one group.
type GroupStat struct {
	Group string `json:"group"`
	Count int    `json:"count"`
	Mean  Float  `json:"mean"`
	Std   Float  `json:"std"`
	Min   Float  `json:"min"`
	Max   Float  `json:"max"`
}

// GroupStats computes mean/std/min/max of a numeric metric per distinct
// value of the grouping column. Groups are returned alphabetically.
func (t *Table) GroupStats(groupCol, metric string) ([]GroupStat, error) {
	groups, err := t.Strings(groupCol)
	if err != nil {
		return nil, err
	}
	groupMask, err := t.MissingMask(groupCol)
	if err != nil {
		return nil, err
	}
	values, err := t.Column(metric)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string][]float64)
	for i, g := range groups {
		if groupMask[i] || math.IsNaN(values[i]) {
			continue
		}
		byGroup[g] = append(byGroup[g], values[i])
	}

	names := make([]string, 0, len(byGroup))
	for g := range byGroup {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]GroupStat, 0, len(names))
	for _, g := range names {
		vals := byGroup[g]
		out = append(out, GroupStat{
			Group: g,
			Count: len(vals),
			Mean:  Float(meanOr(vals, math.NaN())),
			Std:   Float(sampleStdOr(vals, math.NaN())),
			Min:   Float(minOr(vals, math.NaN())),
			Max:   Float(maxOr(vals, math.NaN())),
		})
	}
	return out, nil
}

// ColumnSummary holds describe-style statistics for one numeric column.
type ColumnSummary struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Float  `json:"mean"`
	Std    Float  `json:"std"`
	Min    Float  `json:"min"`
	Q25    Float  `json:"q25"`
	Median Float  `json:"median"`
	Q75    Float  `json:"q75"`
	Max    Float  `json:"max"`
}

// SummaryStatistics computes describe-style statistics for every numeric
// column, ignoring missing cells.
func (t *Table) SummaryStatistics() []ColumnSummary {
	numeric := t.NumericColumns()
	out := make([]ColumnSummary, 0, len(numeric))

	for _, name := range numeric {
		raw, _ := t.Column(name)
		vals := DropNaN(raw)

		out = append(out, ColumnSummary{
			Column: name,
			Count:  len(vals),
			Mean:   Float(meanOr(vals, math.NaN())),
			Std:    Float(sampleStdOr(vals, math.NaN())),
			Min:    Float(minOr(vals, math.NaN())),
			Q25:    Float(percentileOr(vals, 25, math.NaN())),
			Median: Float(medianOr(vals, math.NaN())),
			Q75:    Float(percentileOr(vals, 75, math.NaN())),
			Max:    Float(maxOr(vals, math.NaN())),
		})
	}
	return out
}

// DropNaN returns a copy of vals without NaN entries.
func DropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func meanOr(vals []float64, def float64) float64 {
	m, err := stats.Mean(vals)
	if err != nil {
		return def
	}
	return m
}

// sampleStdOr matches describe semantics: undefined below two observations.
func sampleStdOr(vals []float64, def float64) float64 {
	if len(vals) < 2 {
		return def
	}
	s, err := stats.StandardDeviationSample(vals)
	if err != nil {
		return def
	}
	return s
}

func minOr(vals []float64, def float64) float64 {
	m, err := stats.Min(vals)
	if err != nil {
		return def
	}
	return m
}

func maxOr(vals []float64, def float64) float64 {
	m, err := stats.Max(vals)
	if err != nil {
		return def
	}
	return m
}

func medianOr(vals []float64, def float64) float64 {
	m, err := stats.Median(vals)
	if err != nil {
		return def
	}
	return m
}

func percentileOr(vals []float64, p float64, def float64) float64 {
	v, err := stats.Percentile(vals, p)
	if err != nil {
		return def
	}
	return v
}
