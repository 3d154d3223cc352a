// Package chart renders reading series as SVG line charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Defaults matching the dashboard layout
const (
	DefaultWidth    = 700
	DefaultHeight   = 300
	DefaultFontSize = 12
)

// LabelLayout formats x-axis labels as hour:minute.
const LabelLayout = "15:04"

// ErrNoPoints is returned when asked to chart an empty series.
var ErrNoPoints = errors.New("no points to chart")

// Point is one labelled sample. Points are charted in slice order.
type Point struct {
	Time  time.Time
	Label string
	Value float64
}

// NewPoint labels t with LabelLayout in t's own zone.
func NewPoint(t time.Time, value float64) Point {
	return Point{Time: t, Label: t.Format(LabelLayout), Value: value}
}

// Config controls the value axis and canvas.
type Config struct {
	AxisMin  float64
	AxisMax  float64
	FontSize float64
	Width    int
	Height   int

	// Color of the line, defaults to blue
	Color drawing.Color
}

// Artifact is a rendered chart ready to embed in a page.
type Artifact struct {
	SVG    template.HTML
	Script template.JS
}

// Renderer draws charts with go-chart.
type Renderer struct{}

// NewRenderer creates a chart renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render draws points as a line chart with a fixed value axis.
// The SVG needs no companion script, so Script is empty.
func (r *Renderer) Render(points []Point, cfg Config) (Artifact, error) {
	if len(points) == 0 {
		return Artifact{}, ErrNoPoints
	}
	if cfg.AxisMax <= cfg.AxisMin {
		return Artifact{}, fmt.Errorf("invalid axis range [%g, %g]", cfg.AxisMin, cfg.AxisMax)
	}
	applyDefaults(&cfg)

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	ticks := make([]gochart.Tick, len(points))
	for i, p := range points {
		xs[i] = p.Time
		ys[i] = p.Value
		ticks[i] = gochart.Tick{Value: gochart.TimeToFloat64(p.Time), Label: p.Label}
	}

	// go-chart rejects a zero-width x range; pad a lone point by a minute
	minX := gochart.TimeToFloat64(xs[0])
	maxX := gochart.TimeToFloat64(xs[len(xs)-1])
	if maxX <= minX {
		minX = gochart.TimeToFloat64(xs[0].Add(-time.Minute))
		maxX = gochart.TimeToFloat64(xs[0].Add(time.Minute))
		// Unlabelled edge ticks keep the axis at two ticks or more
		ticks = []gochart.Tick{{Value: minX}, ticks[0], {Value: maxX}}
	}

	ch := gochart.Chart{
		Width:  cfg.Width,
		Height: cfg.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 20, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: gochart.XAxis{
			Style: gochart.Style{FontSize: cfg.FontSize},
			Range: &gochart.ContinuousRange{Min: minX, Max: maxX},
			Ticks: ticks,
		},
		YAxis: gochart.YAxis{
			Style: gochart.Style{FontSize: cfg.FontSize},
			Range: &gochart.ContinuousRange{Min: cfg.AxisMin, Max: cfg.AxisMax},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: cfg.Color,
					StrokeWidth: 2,
					DotColor:    cfg.Color,
					DotWidth:    3,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.SVG, &buf); err != nil {
		return Artifact{}, fmt.Errorf("render chart: %w", err)
	}
	// Output comes from go-chart, not from user input
	return Artifact{SVG: template.HTML(buf.String())}, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultFontSize
	}
	if cfg.Color.IsZero() {
		cfg.Color = gochart.ColorBlue
	}
}
