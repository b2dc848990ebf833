package httpapi

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dagim-a/solar-data-dashboard/internal/analysis"
	"github.com/dagim-a/solar-data-dashboard/internal/catalog"
	"github.com/dagim-a/solar-data-dashboard/internal/dataset"
	"github.com/dagim-a/solar-data-dashboard/internal/geo"
	"github.com/dagim-a/solar-data-dashboard/internal/remote"
	"github.com/dagim-a/solar-data-dashboard/internal/report"
	"github.com/dagim-a/solar-data-dashboard/internal/store"
	"github.com/dagim-a/solar-data-dashboard/internal/viz"
)

var validate = validator.New()

// Defaults carries the configured analysis thresholds; every endpoint lets
// the caller override them per request.
type Defaults struct {
	MissingThreshold     float64
	ZScoreThreshold      float64
	CorrelationThreshold float64
	HistogramBins        int
}

// Deps bundles everything the HTTP handlers need.
type Deps struct {
	Catalog  *catalog.Catalog
	Store    *store.MemoryStore
	Fetcher  *remote.Fetcher
	Locator  *geo.Locator
	Defaults Defaults
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	registerPages(app, deps)

	v1 := app.Group("/api/v1")

	v1.Get("/datasets", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"dir":      deps.Catalog.Dir(),
			"datasets": deps.Catalog.Files(),
		})
	})

	v1.Post("/datasets/fetch", func(c *fiber.Ctx) error {
		var req fetchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		path, err := deps.Fetcher.Fetch(c.Context(), req.URL, req.Name)
		if err != nil {
			return httpError(err)
		}
		if err := deps.Catalog.Rescan(); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"name": req.Name, "path": path})
	})

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		var req loadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		path, err := deps.Catalog.Path(req.File)
		if err != nil {
			return httpError(err)
		}

		country := req.Country
		if country == "" {
			country = strings.TrimSuffix(req.File, filepath.Ext(req.File))
		}

		analyzer := analysis.NewAnalyzer(path, country)
		table, err := analyzer.Load()
		if err != nil {
			return httpError(err)
		}

		sess := deps.Store.Create(req.File, country, analyzer)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"session": sess,
			"rows":    table.Nrow(),
			"columns": table.Columns(),
		})
	})

	v1.Get("/sessions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sessions": deps.Store.List()})
	})

	v1.Delete("/sessions/:id", func(c *fiber.Ctx) error {
		if err := deps.Store.Delete(c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/sessions/:id", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{
			"session": sess,
			"summary": sess.Analyzer.Summary(),
		})
	})

	v1.Get("/sessions/:id/preview", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		rows, err := queryInt(c, "rows", 20)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"records": sess.Analyzer.Raw().Head(rows)})
	})

	v1.Get("/sessions/:id/summary", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		summary, err := sess.Analyzer.SummaryStatistics()
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"summary": summary})
	})

	v1.Get("/sessions/:id/missing", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		threshold, err := queryFloat(c, "threshold", deps.Defaults.MissingThreshold)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		missing, err := sess.Analyzer.AnalyzeMissingValues(threshold)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(missing)
	})

	v1.Get("/sessions/:id/outliers", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		threshold, err := queryFloat(c, "threshold", deps.Defaults.ZScoreThreshold)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		columns := splitColumns(c.Query("columns"))
		if len(columns) == 0 {
			columns = analysis.MeasurementColumns
		}
		outliers, err := sess.Analyzer.DetectOutliers(columns, threshold)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(outliers)
	})

	v1.Post("/sessions/:id/clean", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		result, err := sess.Analyzer.Clean()
		if err != nil {
			return httpError(err)
		}
		return c.JSON(result)
	})

	v1.Post("/sessions/:id/export", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		var req exportRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := sess.Analyzer.ExportCleaned(req.Path); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"path": req.Path})
	})

	v1.Post("/sessions/:id/report", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		// The body is optional; an absent path falls back to the default name.
		var req exportRequest
		_ = c.BodyParser(&req)
		path := req.Path
		if path == "" {
			path = filepath.Join("reports", report.DefaultReportName(sess.Dataset))
		}

		a := sess.Analyzer
		if a.Raw() == nil {
			return httpError(analysis.ErrNotLoaded)
		}
		pairs, err := analysis.NewCorrelationAnalyzer(a.Raw()).
			StrongCorrelations(deps.Defaults.CorrelationThreshold)
		if err != nil {
			return httpError(err)
		}
		score := analysis.NewQualityAssessor(a.Results()).Score()

		if err := report.WriteWorkbook(path, sess.Country, a.Results(), pairs, score); err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"path": path})
	})

	v1.Get("/sessions/:id/correlations", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		table := tableFor(sess)
		columns := splitColumns(c.Query("columns"))
		if len(columns) == 0 {
			columns = table.NumericColumns()
		}
		matrix, err := analysis.NewCorrelationAnalyzer(table).AnalyzeCorrelations(columns)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(matrix)
	})

	v1.Get("/sessions/:id/correlations/strong", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		threshold, err := queryFloat(c, "threshold", deps.Defaults.CorrelationThreshold)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		pairs, err := analysis.NewCorrelationAnalyzer(tableFor(sess)).StrongCorrelations(threshold)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"threshold": threshold, "pairs": pairs})
	})

	v1.Get("/sessions/:id/quality", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		score := analysis.NewQualityAssessor(sess.Analyzer.Results()).Score()
		return c.JSON(score)
	})

	v1.Get("/sessions/:id/compare", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		table := tableFor(sess)

		countryCol, ok := table.DetectCountryColumn()
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "no country column detected")
		}

		metric := c.Query("metric")
		if metric == "" {
			numeric := table.NumericColumns()
			if len(numeric) == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "no numeric columns available")
			}
			metric = numeric[0]
		}

		counts, err := table.ValueCounts(countryCol)
		if err != nil {
			return httpError(err)
		}
		groupStats, err := table.GroupStats(countryCol, metric)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{
			"countryColumn": countryCol,
			"metric":        metric,
			"counts":        counts,
			"stats":         groupStats,
		})
	})

	v1.Get("/sessions/:id/site", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		if !deps.Locator.Enabled() {
			return c.JSON(fiber.Map{"enabled": false})
		}
		site, err := deps.Locator.LocateCountry(sess.Country)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(fiber.Map{"enabled": true, "site": site})
	})

	registerChartRoutes(v1, deps)
}

// registerChartRoutes wires the chart endpoints. Each renders an HTML chart
// and optionally persists it when the save query parameter is set.
func registerChartRoutes(v1 fiber.Router, deps Deps) {
	v1.Get("/sessions/:id/charts/histogram", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		column := c.Query("column")
		if column == "" {
			return fiber.NewError(fiber.StatusBadRequest, "column query parameter is required")
		}
		bins, err := queryInt(c, "bins", deps.Defaults.HistogramBins)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		chart, err := viz.Histogram(tableFor(sess), sess.Country, column, bins, c.Query("fit"))
		if err != nil {
			return httpError(err)
		}
		return sendChart(c, chart)
	})

	v1.Get("/sessions/:id/charts/heatmap", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		table := tableFor(sess)
		columns := splitColumns(c.Query("columns"))
		if len(columns) == 0 {
			columns = table.NumericColumns()
		}
		matrix, err := analysis.NewCorrelationAnalyzer(table).AnalyzeCorrelations(columns)
		if err != nil {
			return httpError(err)
		}
		chart, err := viz.Heatmap(matrix, sess.Country)
		if err != nil {
			return httpError(err)
		}
		return sendChart(c, chart)
	})

	v1.Get("/sessions/:id/charts/timeseries", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		columns := splitColumns(c.Query("columns"))
		if len(columns) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "columns query parameter is required")
		}
		chart, err := viz.TimeSeries(tableFor(sess), sess.Country, columns, c.Query("timestamp"))
		if err != nil {
			return httpError(err)
		}
		return sendChart(c, chart)
	})

	v1.Get("/sessions/:id/charts/scatter", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		x, y := c.Query("x"), c.Query("y")
		if x == "" || y == "" {
			return fiber.NewError(fiber.StatusBadRequest, "x and y query parameters are required")
		}
		chart, err := viz.Scatter(tableFor(sess), sess.Country, x, y)
		if err != nil {
			return httpError(err)
		}
		return sendChart(c, chart)
	})

	v1.Get("/sessions/:id/charts/box", func(c *fiber.Ctx) error {
		sess, err := deps.Store.Get(c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		table := tableFor(sess)
		countryCol, ok := table.DetectCountryColumn()
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "no country column detected")
		}
		metric := c.Query("metric")
		if metric == "" {
			return fiber.NewError(fiber.StatusBadRequest, "metric query parameter is required")
		}
		chart, err := viz.BoxPlot(table, sess.Country, countryCol, metric)
		if err != nil {
			return httpError(err)
		}
		return sendChart(c, chart)
	})
}

// sendChart renders the chart into the response and, when save is set,
// also persists it to that path.
func sendChart(c *fiber.Ctx, chart viz.Chart) error {
	if save := c.Query("save"); save != "" {
		if err := viz.Save(chart, save); err != nil {
			return httpError(err)
		}
	}
	c.Type("html")
	return chart.Render(c)
}

// tableFor returns the cleaned table when available, the raw table otherwise.
func tableFor(sess *store.Session) *dataset.Table {
	if t := sess.Analyzer.Cleaned(); t != nil {
		return t
	}
	return sess.Analyzer.Raw()
}

// fetchRequest is the body for POST /datasets/fetch.
type fetchRequest struct {
	URL  string `json:"url" validate:"required,url"`
	Name string `json:"name" validate:"required"`
}

// loadRequest is the body for POST /sessions.
type loadRequest struct {
	File    string `json:"file" validate:"required"`
	Country string `json:"country"`
}

// exportRequest is the body for POST export/report endpoints.
type exportRequest struct {
	Path string `json:"path" validate:"required"`
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, catalog.ErrDatasetNotFound),
		errors.Is(err, dataset.ErrFileNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, analysis.ErrNotLoaded),
		errors.Is(err, analysis.ErrNotCleaned),
		errors.Is(err, analysis.ErrNoColumnsFound),
		errors.Is(err, analysis.ErrInsufficientColumns),
		errors.Is(err, dataset.ErrColumnNotFound),
		errors.Is(err, remote.ErrBadDatasetName),
		errors.Is(err, geo.ErrDisabled):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func splitColumns(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var cols []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

func queryFloat(c *fiber.Ctx, key string, def float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("invalid " + key + " query parameter")
	}
	return f, nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + key + " query parameter")
	}
	return n, nil
}
