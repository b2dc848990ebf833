package analysis

import (
	"log"

	"github.com/dagim-a/solar-data-dashboard/internal/dataset"
)

// Results collects the outputs of the analysis steps that have run so far.
// It is passed around explicitly so each step stays independently testable.
type Results struct {
	Summary  []dataset.ColumnSummary `json:"summary,omitempty"`
	Missing  *MissingValueReport     `json:"missing,omitempty"`
	Outliers *OutlierReport          `json:"outliers,omitempty"`
}

// Ran lists the analyses that have produced results, in a fixed order.
func (r *Results) Ran() []string {
	var ran []string
	if r.Summary != nil {
		ran = append(ran, "summary_statistics")
	}
	if r.Missing != nil {
		ran = append(ran, "missing_values")
	}
	if r.Outliers != nil {
		ran = append(ran, "outliers")
	}
	return ran
}

// Analyzer drives the analysis of a single measurement dataset. The raw
// table is immutable after Load; Clean produces a derived copy.
type Analyzer struct {
	path    string
	country string

	raw     *dataset.Table
	cleaned *dataset.Table
	results Results
}

// NewAnalyzer creates an Analyzer for the CSV at path, labeled with the
// country (or session) name used in titles and summaries.
func NewAnalyzer(path, country string) *Analyzer {
	return &Analyzer{path: path, country: country}
}

// NewAnalyzerFromTable wraps an already-loaded table, mainly for tests.
func NewAnalyzerFromTable(t *dataset.Table, country string) *Analyzer {
	return &Analyzer{raw: t, country: country}
}

// Load reads the dataset from disk. The file must exist.
func (a *Analyzer) Load() (*dataset.Table, error) {
	t, err := dataset.Load(a.path)
	if err != nil {
		return nil, err
	}
	a.raw = t
	log.Printf("INFO: loaded %d records for %s", t.Nrow(), a.country)
	return t, nil
}

// Country returns the session label.
func (a *Analyzer) Country() string { return a.country }

// Path returns the source file path.
func (a *Analyzer) Path() string { return a.path }

// Raw returns the loaded table, or nil before Load.
func (a *Analyzer) Raw() *dataset.Table { return a.raw }

// Cleaned returns the cleaned table, or nil before Clean.
func (a *Analyzer) Cleaned() *dataset.Table { return a.cleaned }

// Results returns the accumulated analysis results.
func (a *Analyzer) Results() *Results { return &a.results }

// SummaryStatistics computes describe-style statistics over all numeric
// columns and records them in the results.
func (a *Analyzer) SummaryStatistics() ([]dataset.ColumnSummary, error) {
	if a.raw == nil {
		return nil, ErrNotLoaded
	}
	summary := a.raw.SummaryStatistics()
	a.results.Summary = summary
	return summary, nil
}

// SessionSummary is a compact overview of one analysis session.
type SessionSummary struct {
	Country        string   `json:"country"`
	Path           string   `json:"path"`
	RawRows        int      `json:"rawRows"`
	RawColumns     int      `json:"rawColumns"`
	Cleaned        bool     `json:"cleaned"`
	CleanedRows    int      `json:"cleanedRows,omitempty"`
	CleanedColumns int      `json:"cleanedColumns,omitempty"`
	Analyses       []string `json:"analyses"`
}

// Summary reports shapes and which analyses have run.
func (a *Analyzer) Summary() SessionSummary {
	s := SessionSummary{
		Country:  a.country,
		Path:     a.path,
		Analyses: a.results.Ran(),
	}
	if a.raw != nil {
		s.RawRows = a.raw.Nrow()
		s.RawColumns = a.raw.Ncol()
	}
	if a.cleaned != nil {
		s.Cleaned = true
		s.CleanedRows = a.cleaned.Nrow()
		s.CleanedColumns = a.cleaned.Ncol()
	}
	return s
}
