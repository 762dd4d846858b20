// Package viz renders aggregation results and EDA summaries as
// self-contained HTML chart artifacts.
package viz

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// ChartSink writes one HTML artifact per result into a directory. It
// satisfies the orchestrator's sink contract; write failures surface as
// sink errors the caller logs and moves past.
type ChartSink struct {
	dir string
}

// NewChartSink creates a sink writing chart files under dir.
func NewChartSink(dir string) (*ChartSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewSinkError(fmt.Sprintf("failed to create chart directory %s", dir), err)
	}
	return &ChartSink{dir: dir}, nil
}

// WriteResult renders the hourly mean fare curve for one benchmark cell.
func (s *ChartSink) WriteResult(label string, result types.AggregationResult) error {
	hours := make([]string, len(result))
	points := make([]opts.LineData, len(result))
	for i, hf := range result {
		hours[i] = fmt.Sprintf("%02d:00", hf.Hour)
		points[i] = opts.LineData{Value: hf.AvgFare}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Mean fare by pickup hour",
			Subtitle: label,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(hours).AddSeries("mean fare", points)

	return s.render(line, label)
}

// WriteHistogram renders a binned distribution as a bar chart.
func (s *ChartSink) WriteHistogram(title string, binLabels []string, counts []int64) error {
	bars := make([]opts.BarData, len(counts))
	for i, c := range counts {
		bars[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(binLabels).AddSeries("trips", bars)

	return s.render(bar, title)
}

// WriteCorrelation renders a square correlation matrix as a heatmap.
// Columns label both axes; matrix[i][j] is the correlation between
// columns i and j.
func (s *ChartSink) WriteCorrelation(title string, columns []string, matrix [][]float64) error {
	if len(matrix) != len(columns) {
		return errors.NewSinkError(
			fmt.Sprintf("correlation matrix is %dx%d but %d columns were labeled",
				len(matrix), len(matrix), len(columns)), nil)
	}

	cells := make([]opts.HeatMapData, 0, len(columns)*len(columns))
	for i, row := range matrix {
		for j, v := range row {
			cells = append(cells, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}

	heatmap := charts.NewHeatMap()
	heatmap.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: columns}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: columns}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -1,
			Max:        1,
		}),
	)
	heatmap.AddSeries("correlation", cells)

	return s.render(heatmap, title)
}

type renderable interface {
	Render(w io.Writer) error
}

func (s *ChartSink) render(chart renderable, label string) error {
	path := filepath.Join(s.dir, slug(label)+".html")
	f, err := os.Create(path)
	if err != nil {
		return errors.NewSinkError(fmt.Sprintf("failed to create chart file %s", path), err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return errors.NewSinkError(fmt.Sprintf("failed to render chart %s", path), err)
	}
	return nil
}

// slug turns a chart label into a stable filename.
func slug(label string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
