package httpapi

import (
	"bytes"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dagim-a/solar-data-dashboard/internal/analysis"
	"github.com/dagim-a/solar-data-dashboard/internal/store"
)

// indexTmpl is the dashboard shell: dataset selection, live sessions, and
// links into the analysis tabs. All numbers on the page come from the JSON
// API; the shell itself holds no analytical logic.
var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Solar Farm Data Analysis</title>
<style>
  body { font-family: sans-serif; margin: 2rem auto; max-width: 64rem; color: #222; }
  h1 { color: #ff6b35; }
  h2 { color: #004e89; margin-top: 2rem; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
  .tabs a { margin-right: 1rem; }
  .muted { color: #666; }
</style>
</head>
<body>
<h1>&#9728; Solar Farm Data Analysis</h1>
<p class="muted">Cross-country comparison: Benin, Sierra Leone, and Togo</p>

<h2>Datasets ({{.Dir}})</h2>
{{if .Datasets}}
<table>
  <tr><th>File</th><th></th></tr>
  {{range .Datasets}}
  <tr>
    <td>{{.}}</td>
    <td>
      <form method="post" action="/sessions/open">
        <input type="hidden" name="file" value="{{.}}">
        <input type="text" name="country" placeholder="country label">
        <button type="submit">Analyze</button>
      </form>
    </td>
  </tr>
  {{end}}
</table>
{{else}}
<p>No CSV files found. Add your measurement files to the data directory.</p>
{{end}}

<h2>Sessions</h2>
{{if .Sessions}}
<table>
  <tr><th>Country</th><th>Dataset</th><th>Created</th><th>Tabs</th></tr>
  {{range .Sessions}}
  <tr>
    <td>{{.Country}}</td>
    <td>{{.Dataset}}</td>
    <td>{{.CreatedAt.Format "2006-01-02 15:04:05"}}</td>
    <td class="tabs">
      <a href="/api/v1/sessions/{{.ID}}/preview">Preview</a>
      <a href="/api/v1/sessions/{{.ID}}/summary">Summary</a>
      <a href="/api/v1/sessions/{{.ID}}/missing">Missing</a>
      <a href="/api/v1/sessions/{{.ID}}/outliers">Outliers</a>
      <a href="/api/v1/sessions/{{.ID}}/correlations/strong">Correlations</a>
      <a href="/api/v1/sessions/{{.ID}}/quality">Quality</a>
      <a href="/api/v1/sessions/{{.ID}}/compare">Countries</a>
      <a href="/api/v1/sessions/{{.ID}}/charts/heatmap">Heatmap</a>
      <a href="/api/v1/sessions/{{.ID}}/charts/histogram?column=GHI">GHI&nbsp;histogram</a>
    </td>
  </tr>
  {{end}}
</table>
{{else}}
<p>No analysis sessions yet.</p>
{{end}}

</body>
</html>
`))

type indexData struct {
	Dir      string
	Datasets []string
	Sessions []*store.Session
}

// registerPages wires the HTML shell.
func registerPages(app fiber.Router, deps Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		data := indexData{
			Dir:      deps.Catalog.Dir(),
			Datasets: deps.Catalog.Files(),
			Sessions: deps.Store.List(),
		}

		var buf bytes.Buffer
		if err := indexTmpl.Execute(&buf, data); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Type("html")
		return c.Send(buf.Bytes())
	})

	// Form target for the shell's Analyze button; mirrors POST /api/v1/sessions
	// but redirects back to the dashboard.
	app.Post("/sessions/open", func(c *fiber.Ctx) error {
		file := c.FormValue("file")
		if file == "" {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		path, err := deps.Catalog.Path(file)
		if err != nil {
			return httpError(err)
		}

		country := c.FormValue("country")
		if country == "" {
			country = strings.TrimSuffix(file, filepath.Ext(file))
		}

		analyzer := analysis.NewAnalyzer(path, country)
		if _, err := analyzer.Load(); err != nil {
			return httpError(err)
		}
		deps.Store.Create(file, country, analyzer)
		return c.Redirect("/", fiber.StatusSeeOther)
	})
}
