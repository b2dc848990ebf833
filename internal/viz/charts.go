package viz

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dagim-a/solar-data-dashboard/internal/analysis"
	"github.com/dagim-a/solar-data-dashboard/internal/dataset"
)

// Chart is a renderable figure handle. Every chart variant produced by this
// package implements a single render operation.
type Chart interface {
	Render(w io.Writer) error
}

// maxPoints caps the number of points embedded into a single HTML chart;
// longer series are stride-sampled.
const maxPoints = 2000

// Save renders a chart to path, creating parent directories as needed.
func Save(c Chart, path string) error {
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
	return c.Render(f)
}

// Histogram builds a histogram of one column with the requested bin count.
// fit may be "" / "none", or "normal" to overlay a fitted normal curve.
func Histogram(t *dataset.Table, label, column string, bins int, fit string) (Chart, error) {
	vals, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if bins <= 0 {
		return nil, fmt.Errorf("bin count must be positive, got %d", bins)
	}
	if fit != "" && fit != "none" && fit != "normal" {
		return nil, fmt.Errorf("unknown distribution fit %q", fit)
	}

	data := dataset.DropNaN(vals)
	if len(data) == 0 {
		return nil, fmt.Errorf("column %s has no values to plot", column)
	}

	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	width := (max - min) / float64(bins)
	if width == 0 {
		// Constant column: a single bin holds everything.
		bins = 1
		width = 1
	}

	counts := make([]int, bins)
	for _, v := range data {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	labels := make([]string, bins)
	barData := make([]opts.BarData, bins)
	for i := 0; i < bins; i++ {
		center := min + (float64(i)+0.5)*width
		labels[i] = fmt.Sprintf("%.4g", center)
		barData[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Distribution of %s - %s", column, label),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Name: column}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency"}),
	)
	bar.SetXAxis(labels).AddSeries(column, barData)

	if fit == "normal" {
		mu, _ := stats.Mean(data)
		sigma, _ := stats.StandardDeviation(data)
		if sigma > 0 {
			normal := distuv.Normal{Mu: mu, Sigma: sigma}
			lineData := make([]opts.LineData, bins)
			for i := 0; i < bins; i++ {
				center := min + (float64(i)+0.5)*width
				// Scale the density to the histogram's count axis.
				expected := normal.Prob(center) * float64(len(data)) * width
				lineData[i] = opts.LineData{Value: expected}
			}
			line := charts.NewLine()
			line.SetXAxis(labels).AddSeries(
				fmt.Sprintf("Normal fit (mu=%.2f, sigma=%.2f)", mu, sigma),
				lineData,
				charts.WithLineChartOpts(opts.LineChart{Smooth: true}),
			)
			bar.Overlap(line)
		}
	}

	return bar, nil
}

// Heatmap builds a correlation heatmap from a precomputed matrix. Only the
// lower triangle (including the diagonal) is drawn, mirroring the masked
// matrix view.
func Heatmap(m *analysis.Matrix, label string) (Chart, error) {
	if m == nil || len(m.Columns) < 2 {
		return nil, fmt.Errorf("need at least 2 columns for correlation heatmap")
	}

	var cells []opts.HeatMapData
	for i := range m.Columns {
		for j := 0; j <= i; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			cells = append(cells, opts.HeatMapData{
				Value: [3]interface{}{j, i, math.Round(v*100) / 100},
			})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Correlation Heatmap - %s", label),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: m.Columns}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: m.Columns}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: true,
			Min:        -1,
			Max:        1,
			InRange: &opts.VisualMapInRange{
				Color: []string{"#313695", "#ffffff", "#a50026"},
			},
		}),
	)
	hm.AddSeries("correlation", cells)
	return hm, nil
}

// TimeSeries plots the requested columns against the timestamp column.
func TimeSeries(t *dataset.Table, label string, columns []string, timestampCol string) (Chart, error) {
	if timestampCol == "" {
		timestampCol = "Timestamp"
	}
	timestamps, err := t.Strings(timestampCol)
	if err != nil {
		return nil, fmt.Errorf("timestamp column %q not found", timestampCol)
	}

	var available []string
	for _, c := range columns {
		if t.HasColumn(c) {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return nil, analysis.ErrNoColumnsFound
	}

	stride := 1
	if len(timestamps) > maxPoints {
		stride = len(timestamps) / maxPoints
	}

	var xs []string
	for i := 0; i < len(timestamps); i += stride {
		xs = append(xs, timestamps[i])
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Time Series - %s", label),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Name: timestampCol}),
	)
	line.SetXAxis(xs)

	for _, name := range available {
		vals, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		var points []opts.LineData
		for i := 0; i < len(vals); i += stride {
			if math.IsNaN(vals[i]) {
				points = append(points, opts.LineData{Value: nil})
			} else {
				points = append(points, opts.LineData{Value: vals[i]})
			}
		}
		line.AddSeries(name, points)
	}
	return line, nil
}

// Scatter plots column y against column x, skipping rows where either value
// is missing.
func Scatter(t *dataset.Table, label, x, y string) (Chart, error) {
	xv, err := t.Column(x)
	if err != nil {
		return nil, err
	}
	yv, err := t.Column(y)
	if err != nil {
		return nil, err
	}

	var points []opts.ScatterData
	for i := range xv {
		if math.IsNaN(xv[i]) || math.IsNaN(yv[i]) {
			continue
		}
		points = append(points, opts.ScatterData{
			Value:      []interface{}{xv[i], yv[i]},
			SymbolSize: 5,
		})
	}
	if len(points) > maxPoints {
		stride := len(points) / maxPoints
		var sampled []opts.ScatterData
		for i := 0; i < len(points); i += stride {
			sampled = append(sampled, points[i])
		}
		points = sampled
	}

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s vs %s - %s", y, x, label),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithXAxisOpts(opts.XAxis{Name: x}),
		charts.WithYAxisOpts(opts.YAxis{Name: y}),
	)
	sc.AddSeries(fmt.Sprintf("%s vs %s", y, x), points)
	return sc, nil
}

// BoxPlot draws one box per group (country) for the chosen metric.
func BoxPlot(t *dataset.Table, label, groupCol, metric string) (Chart, error) {
	groups, err := t.Strings(groupCol)
	if err != nil {
		return nil, err
	}
	groupMask, err := t.MissingMask(groupCol)
	if err != nil {
		return nil, err
	}
	vals, err := t.Column(metric)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string][]float64)
	var order []string
	for i, g := range groups {
		if groupMask[i] || math.IsNaN(vals[i]) {
			continue
		}
		if _, seen := byGroup[g]; !seen {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], vals[i])
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("no groups with values for %s", metric)
	}

	var boxes []opts.BoxPlotData
	for _, g := range order {
		data := byGroup[g]
		min, _ := stats.Min(data)
		q1, _ := stats.Percentile(data, 25)
		med, _ := stats.Median(data)
		q3, _ := stats.Percentile(data, 75)
		max, _ := stats.Max(data)
		boxes = append(boxes, opts.BoxPlotData{
			Value: []float64{min, q1, med, q3, max},
		})
	}

	bp := charts.NewBoxPlot()
	bp.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s by %s - %s", metric, groupCol, label),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true}),
		charts.WithYAxisOpts(opts.YAxis{Name: metric}),
	)
	bp.SetXAxis(order).AddSeries(metric, boxes)
	return bp, nil
}
