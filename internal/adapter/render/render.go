// Package render draws query results as line charts with go-chart. It is the
// only place the log/linear scale is applied: the engine passes the scale
// through untouched.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/couchcryptid/epi-series-service/internal/domain"
	"github.com/wcharczuk/go-chart/v2"
)

// ErrNothingToRender is returned when no series has a plottable point, for
// example a log-scale chart whose values are all zero.
var ErrNothingToRender = errors.New("nothing to render")

// Format is the output image encoding.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ParseFormat accepts "svg" (the default for an empty string) or "png".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", SVG:
		return SVG, nil
	case PNG:
		return PNG, nil
	default:
		return "", fmt.Errorf("unknown image format %q", s)
	}
}

// Renderer turns a domain.Result into an image of fixed size.
type Renderer struct {
	width  int
	height int
	format Format
}

// New creates a Renderer. Width and height are in pixels.
func New(width, height int, format Format) *Renderer {
	return &Renderer{width: width, height: height, format: format}
}

// ContentType is the MIME type of the rendered image.
func (r *Renderer) ContentType() string {
	if r.format == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Render draws one line per named series. In log mode y is plotted as
// log10(y) and points with y <= 0 are dropped. Series left with no points are
// omitted from the chart.
func (r *Renderer) Render(w io.Writer, res domain.Result) error {
	series, yMin, yMax := buildSeries(res)
	if len(series) == 0 {
		return ErrNothingToRender
	}

	yAxis := chart.YAxis{Name: res.Chart.YLabel()}
	if res.Scale == domain.ScaleLog {
		yAxis.Name += " (log scale)"
		yAxis.ValueFormatter = powerOfTenFormatter
	}
	if yMin == yMax {
		yAxis.Range = &chart.ContinuousRange{Min: yMin - 1, Max: yMax + 1}
	}

	xAxis := chart.XAxis{Name: res.Chart.XLabel()}
	if labels := dateLabels(res); len(labels) > 0 {
		xAxis.ValueFormatter = indexLabelFormatter(labels)
	}

	ch := chart.Chart{
		Title:      res.Chart.Title(),
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	provider := chart.SVG
	if r.format == PNG {
		provider = chart.PNG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("render %s chart: %w", res.Chart, err)
	}
	return nil
}

func buildSeries(res domain.Result) (series []chart.Series, yMin, yMax float64) {
	yMin, yMax = math.Inf(1), math.Inf(-1)
	for _, ns := range res.Series {
		xs, ys := plotValues(ns.Points, res.Scale)
		if len(xs) == 0 {
			continue
		}
		// go-chart needs two x values to build a range.
		if len(xs) == 1 {
			xs = append(xs, xs[0]+1)
			ys = append(ys, ys[0])
		}
		for _, y := range ys {
			yMin = math.Min(yMin, y)
			yMax = math.Max(yMax, y)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    ns.Name,
			XValues: xs,
			YValues: ys,
		})
	}
	return series, yMin, yMax
}

// plotValues applies the scale transform to a series.
func plotValues(points []domain.Point, scale domain.ScaleMode) (xs, ys []float64) {
	xs = make([]float64, 0, len(points))
	ys = make([]float64, 0, len(points))
	for _, p := range points {
		y := p.Y
		if scale == domain.ScaleLog {
			if y <= 0 {
				continue
			}
			y = math.Log10(y)
		}
		xs = append(xs, p.X)
		ys = append(ys, y)
	}
	return xs, ys
}

func dateLabels(res domain.Result) map[int]string {
	labels := make(map[int]string)
	for _, ns := range res.Series {
		for _, p := range ns.Points {
			if p.Label != "" {
				labels[int(p.X)] = p.Label
			}
		}
	}
	return labels
}

func indexLabelFormatter(labels map[int]string) chart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		return labels[int(math.Round(f))]
	}
}

func powerOfTenFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(math.Pow(10, f), 'g', 3, 64)
}
