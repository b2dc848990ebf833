package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dagim-a/solar-data-dashboard/internal/catalog"
	"github.com/dagim-a/solar-data-dashboard/internal/geo"
	"github.com/dagim-a/solar-data-dashboard/internal/store"
)

const sampleCSV = `Timestamp,GHI,DNI,Tamb,Country
2021-08-09 00:00,100,50,25.5,Benin
2021-08-09 00:01,,60,26.0,Benin
2021-08-09 00:02,-5,70,24.0,Togo
`

// newTestApp builds a Fiber app over a temp data directory holding one
// sample dataset.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "solar.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := catalog.New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, Deps{
		Catalog: cat,
		Store:   store.NewMemoryStore(10, time.Hour),
		Locator: geo.NewLocator(""),
		Defaults: Defaults{
			MissingThreshold:     5.0,
			ZScoreThreshold:      3.0,
			CorrelationThreshold: 0.5,
			HistogramBins:        50,
		},
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

// openSession creates an analysis session for the sample dataset and returns
// its id.
func openSession(t *testing.T, app *fiber.App) string {
	t.Helper()

	resp := postJSON(t, app, "/api/v1/sessions", map[string]string{
		"file":    "solar.csv",
		"country": "Benin",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	var body struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Rows int `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Session.ID == "" {
		t.Fatal("expected a session id")
	}
	if body.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", body.Rows)
	}
	return body.Session.ID
}

func TestListDatasets(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/api/v1/datasets")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Datasets []string `json:"datasets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Datasets) != 1 || body.Datasets[0] != "solar.csv" {
		t.Errorf("unexpected datasets %v", body.Datasets)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	app := newTestApp(t)

	// Missing file name should return 400.
	resp := postJSON(t, app, "/api/v1/sessions", map[string]string{"country": "Benin"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// A file outside the catalog should return 404.
	resp = postJSON(t, app, "/api/v1/sessions", map[string]string{"file": "absent.csv"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestSessionNotFound(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/api/v1/sessions/no-such-id")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestDeleteSession(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}

	if resp := get(t, app, "/api/v1/sessions/"+id); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected deleted session to 404, got %d", resp.StatusCode)
	}
}

func TestAnalysisFlow(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	// Preview returns the header plus the requested rows.
	resp := get(t, app, "/api/v1/sessions/"+id+"/preview?rows=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var preview struct {
		Records [][]string `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&preview); err != nil {
		t.Fatal(err)
	}
	if len(preview.Records) != 3 {
		t.Errorf("expected header plus 2 rows, got %d", len(preview.Records))
	}

	// Summary statistics.
	resp = get(t, app, "/api/v1/sessions/"+id+"/summary")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// Missing-value report flags the gappy GHI column at the default
	// threshold.
	resp = get(t, app, "/api/v1/sessions/"+id+"/missing")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("missing: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var missing struct {
		CriticalColumns []string `json:"criticalColumns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&missing); err != nil {
		t.Fatal(err)
	}
	if len(missing.CriticalColumns) != 1 || missing.CriticalColumns[0] != "GHI" {
		t.Errorf("unexpected critical columns %v", missing.CriticalColumns)
	}

	// Outlier detection over the default measurement columns.
	resp = get(t, app, "/api/v1/sessions/"+id+"/outliers")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("outliers: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// Cleaning imputes the missing GHI cell and clamps the negative one.
	resp = postJSON(t, app, "/api/v1/sessions/"+id+"/clean", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clean: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var clean struct {
		Rows           int                `json:"rows"`
		ImputedColumns map[string]float64 `json:"imputedColumns"`
		ClampedColumns map[string]int     `json:"clampedColumns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&clean); err != nil {
		t.Fatal(err)
	}
	if clean.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", clean.Rows)
	}
	if clean.ImputedColumns["GHI"] != 47.5 {
		t.Errorf("expected GHI median 47.5, got %v", clean.ImputedColumns["GHI"])
	}
	if clean.ClampedColumns["GHI"] != 1 {
		t.Errorf("expected 1 clamped GHI cell, got %d", clean.ClampedColumns["GHI"])
	}

	// Quality score reflects the recorded analyses.
	resp = get(t, app, "/api/v1/sessions/"+id+"/quality")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quality: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var quality struct {
		Completeness float64 `json:"completeness"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quality); err != nil {
		t.Fatal(err)
	}
	if quality.Completeness <= 0 {
		t.Errorf("expected positive completeness, got %v", quality.Completeness)
	}
}

func TestCorrelations(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	resp := get(t, app, "/api/v1/sessions/"+id+"/correlations?columns=GHI,DNI,Tamb")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var matrix struct {
		Columns []string `json:"columns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matrix); err != nil {
		t.Fatal(err)
	}
	if len(matrix.Columns) != 3 {
		t.Errorf("unexpected matrix columns %v", matrix.Columns)
	}

	// A single requested column cannot form a matrix.
	resp = get(t, app, "/api/v1/sessions/"+id+"/correlations?columns=GHI")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = get(t, app, "/api/v1/sessions/"+id+"/correlations/strong?threshold=0.9")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestOutliersUnknownColumns(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	resp := get(t, app, "/api/v1/sessions/"+id+"/outliers?columns=Bogus")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestCompareByCountry(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	resp := get(t, app, "/api/v1/sessions/"+id+"/compare?metric=DNI")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		CountryColumn string `json:"countryColumn"`
		Metric        string `json:"metric"`
		Counts        []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.CountryColumn != "Country" || body.Metric != "DNI" {
		t.Errorf("unexpected response %+v", body)
	}
	if len(body.Counts) != 2 || body.Counts[0].Value != "Benin" {
		t.Errorf("unexpected counts %v", body.Counts)
	}
}

func TestExportCleaned(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	out := filepath.Join(t.TempDir(), "cleaned.csv")

	// Export before cleaning should return 400.
	resp := postJSON(t, app, "/api/v1/sessions/"+id+"/export", map[string]string{"path": out})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	if resp := postJSON(t, app, "/api/v1/sessions/"+id+"/clean", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("clean: unexpected status %d", resp.StatusCode)
	}

	resp = postJSON(t, app, "/api/v1/sessions/"+id+"/export", map[string]string{"path": out})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected exported file: %v", err)
	}
}

func TestReportGeneration(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	// Run the analyses so the workbook has content.
	if resp := get(t, app, "/api/v1/sessions/"+id+"/summary"); resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: unexpected status %d", resp.StatusCode)
	}
	if resp := get(t, app, "/api/v1/sessions/"+id+"/missing"); resp.StatusCode != http.StatusOK {
		t.Fatalf("missing: unexpected status %d", resp.StatusCode)
	}

	out := filepath.Join(t.TempDir(), "report.xlsx")
	resp := postJSON(t, app, "/api/v1/sessions/"+id+"/report", map[string]string{"path": out})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected report file: %v", err)
	}
}

func TestSiteDisabled(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	resp := get(t, app, "/api/v1/sessions/"+id+"/site")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Enabled {
		t.Error("expected geocoding to be disabled without an api key")
	}
}

func TestHistogramChart(t *testing.T) {
	app := newTestApp(t)
	id := openSession(t, app)

	// The column query parameter is required.
	resp := get(t, app, "/api/v1/sessions/"+id+"/charts/histogram")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = get(t, app, "/api/v1/sessions/"+id+"/charts/histogram?column=GHI&bins=5")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct == "" || ct == "application/json" {
		t.Errorf("expected an html response, got %q", ct)
	}
}

func TestDashboardShell(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestOpenSessionForm(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions/open",
		bytes.NewBufferString("file=solar.csv&country=Benin"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, resp.StatusCode)
	}
}
