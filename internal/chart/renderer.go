package chart

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"

	"github.com/querychat/querychat/internal/artifact"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/warehouse"
)

const histogramBins = 10

// Renderer draws a selected chart into the artifact store and hands back
// the /static URL the frontend embeds.
type Renderer struct {
	store  artifact.Store
	logger *slog.Logger
}

func NewRenderer(store artifact.Store, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{store: store, logger: logger}
}

// Render produces the chart artifact. Any failure returns an empty URL so
// the chat response simply omits the chart.
func (r *Renderer) Render(ctx context.Context, sel Selection, rows []warehouse.Row) string {
	html, err := renderHTML(sel, rows)
	if err != nil {
		observability.ObserveChartRender(string(sel.Kind), false)
		r.logger.ErrorContext(ctx, "failed to render chart", "kind", sel.Kind, "error", err)
		return ""
	}

	filename := fmt.Sprintf("chart_%s.html", strings.ReplaceAll(uuid.New().String(), "-", ""))
	if err := r.store.Put(ctx, filename, "text/html", bytes.NewReader(html)); err != nil {
		observability.ObserveChartRender(string(sel.Kind), false)
		r.logger.ErrorContext(ctx, "failed to store chart artifact", "kind", sel.Kind, "error", err)
		return ""
	}

	observability.ObserveChartRender(string(sel.Kind), true)
	r.logger.InfoContext(ctx, "rendered chart artifact", "kind", sel.Kind, "file", filename)
	return "/static/" + filename
}

func renderHTML(sel Selection, rows []warehouse.Row) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch sel.Kind {
	case KindBar:
		err = renderBar(&buf, sel, rows)
	case KindLine:
		err = renderLine(&buf, sel, rows)
	case KindHistogram:
		err = renderHistogram(&buf, sel, rows)
	case KindScatter:
		err = renderScatter(&buf, sel, rows)
	default:
		err = fmt.Errorf("unknown chart kind %q", sel.Kind)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderBar(buf *bytes.Buffer, sel Selection, rows []warehouse.Row) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: sel.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: sel.X}),
		charts.WithYAxisOpts(opts.YAxis{Name: sel.Y}),
	)

	labels := make([]string, 0, len(rows))
	values := make([]opts.BarData, 0, len(rows))
	for _, row := range rows {
		value, ok := toFloat(row[sel.Y])
		if !ok {
			continue
		}
		labels = append(labels, toLabel(row[sel.X]))
		values = append(values, opts.BarData{Value: value})
	}
	if len(values) == 0 {
		return fmt.Errorf("no plottable values in column %q", sel.Y)
	}
	bar.SetXAxis(labels).AddSeries(sel.Y, values)
	return bar.Render(buf)
}

func renderLine(buf *bytes.Buffer, sel Selection, rows []warehouse.Row) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: sel.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: sel.X}),
		charts.WithYAxisOpts(opts.YAxis{Name: sel.Y}),
	)

	labels := make([]string, 0, len(rows))
	values := make([]opts.LineData, 0, len(rows))
	for _, row := range rows {
		value, ok := toFloat(row[sel.Y])
		if !ok {
			continue
		}
		labels = append(labels, toLabel(row[sel.X]))
		values = append(values, opts.LineData{Value: value})
	}
	if len(values) == 0 {
		return fmt.Errorf("no plottable values in column %q", sel.Y)
	}
	line.SetXAxis(labels).AddSeries(sel.Y, values)
	return line.Render(buf)
}

// renderHistogram bins the single numeric column and draws the counts as
// a bar chart.
func renderHistogram(buf *bytes.Buffer, sel Selection, rows []warehouse.Row) error {
	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if value, ok := toFloat(row[sel.X]); ok {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("no plottable values in column %q", sel.X)
	}

	labels, counts := binValues(values, histogramBins)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: sel.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: sel.X}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	data := make([]opts.BarData, len(counts))
	for i, count := range counts {
		data[i] = opts.BarData{Value: count}
	}
	bar.SetXAxis(labels).AddSeries("count", data)
	return bar.Render(buf)
}

func renderScatter(buf *bytes.Buffer, sel Selection, rows []warehouse.Row) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: sel.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: sel.X, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: sel.Y, Type: "value"}),
	)

	points := make([]opts.ScatterData, 0, len(rows))
	for _, row := range rows {
		x, okX := toFloat(row[sel.X])
		y, okY := toFloat(row[sel.Y])
		if !okX || !okY {
			continue
		}
		points = append(points, opts.ScatterData{Value: []any{x, y}})
	}
	if len(points) == 0 {
		return fmt.Errorf("no plottable points for %q vs %q", sel.Y, sel.X)
	}
	scatter.AddSeries(sel.Y, points)
	return scatter.Render(buf)
}

func binValues(values []float64, bins int) ([]string, []int) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min == max {
		return []string{formatBound(min)}, []int{len(values)}
	}

	width := (max - min) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	labels := make([]string, bins)
	for i := range labels {
		lo := min + float64(i)*width
		labels[i] = formatBound(lo) + "-" + formatBound(lo+width)
	}
	return labels, counts
}

func formatBound(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func toLabel(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
