// Package dashboard renders the weather page: latest reading, history charts
// and the interval selector.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/nicktill/tinyweather/pkg/axis"
	"github.com/nicktill/tinyweather/pkg/chart"
	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/httpx"
	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/station"
	"github.com/nicktill/tinyweather/pkg/window"
)

//go:embed templates/weather.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/weather.html"))

// Chart line colors
var (
	temperatureColor = drawing.ColorFromHex("d62728")
	humidityColor    = drawing.ColorFromHex("1f77b4")
)

// Options configures the page.
type Options struct {
	// Place is shown in the title, defaults to Helsinki
	Place string

	// Refresh is the meta refresh period, defaults to config.DashboardRefresh
	Refresh time.Duration
}

// Handler serves the dashboard on / and /weather.
type Handler struct {
	station  *station.Station
	renderer *chart.Renderer
	opts     Options
}

// NewHandler creates a dashboard handler.
func NewHandler(st *station.Station, opts Options) *Handler {
	if opts.Place == "" {
		opts.Place = "Helsinki"
	}
	if opts.Refresh <= 0 {
		opts.Refresh = config.DashboardRefresh
	}
	return &Handler{
		station:  st,
		renderer: chart.NewRenderer(),
		opts:     opts,
	}
}

type latestView struct {
	Time        string
	Temperature string
	Humidity    string
}

type intervalButton struct {
	Value   interval.Interval
	Current bool
}

type page struct {
	Place            string
	RefreshSeconds   int
	Latest           *latestView
	TemperatureChart template.HTML
	HumidityChart    template.HTML
	Interval         interval.Interval
	Intervals        []intervalButton
}

// ServeHTTP applies a requested interval change, then renders the page.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httpx.RespondErrorString(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.RenderTimeout)
	defer cancel()

	requested, ok, err := requestedInterval(r)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}
	if ok {
		if err := h.station.SetInterval(ctx, requested); err != nil {
			httpx.RespondFailure(w, err)
			return
		}
	}

	body, err := h.render(ctx)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(body); err != nil {
		log.Printf("Failed to write dashboard: %v", err)
	}
}

func (h *Handler) render(ctx context.Context) ([]byte, error) {
	win, err := h.station.Window(ctx)
	if err != nil {
		return nil, err
	}
	current, err := h.station.Interval(ctx)
	if err != nil {
		return nil, err
	}

	p := page{
		Place:          h.opts.Place,
		RefreshSeconds: int(h.opts.Refresh / time.Second),
		Interval:       current,
	}
	for _, choice := range interval.Choices {
		p.Intervals = append(p.Intervals, intervalButton{Value: choice, Current: choice == current})
	}

	if win.Latest != nil {
		p.Latest = &latestView{
			Time:        win.Latest.Timestamp.Format(chart.LabelLayout),
			Temperature: formatValue(win.Latest.Temperature),
			Humidity:    formatValue(win.Latest.Humidity),
		}
		if p.TemperatureChart, p.HumidityChart, err = h.charts(win); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *Handler) charts(win window.Window) (template.HTML, template.HTML, error) {
	tempAxis, err := axis.Compute(win.Temperatures())
	if err != nil {
		return "", "", err
	}

	temperature, err := h.renderer.Render(points(win.Readings, temperatureValue), chart.Config{
		AxisMin:  tempAxis.Min,
		AxisMax:  tempAxis.Max,
		FontSize: config.ChartFontSize,
		Width:    config.ChartWidth,
		Height:   config.ChartHeight,
		Color:    temperatureColor,
	})
	if err != nil {
		return "", "", fmt.Errorf("temperature chart: %w", err)
	}

	humidity, err := h.renderer.Render(points(win.Readings, humidityValue), chart.Config{
		AxisMin:  axis.HumidityRange.Min,
		AxisMax:  axis.HumidityRange.Max,
		FontSize: config.ChartFontSize,
		Width:    config.ChartWidth,
		Height:   config.ChartHeight,
		Color:    humidityColor,
	})
	if err != nil {
		return "", "", fmt.Errorf("humidity chart: %w", err)
	}

	return temperature.SVG, humidity.SVG, nil
}

func temperatureValue(r reading.Reading) float64 { return r.Temperature }

func humidityValue(r reading.Reading) float64 { return r.Humidity }

func points(readings []reading.Reading, value func(reading.Reading) float64) []chart.Point {
	pts := make([]chart.Point, len(readings))
	for i, r := range readings {
		pts[i] = chart.NewPoint(r.Timestamp, value(r))
	}
	return pts
}

// requestedInterval reads the interval form value, or the legacy form where
// the pressed button's name is the interval itself.
func requestedInterval(r *http.Request) (interval.Interval, bool, error) {
	if err := r.ParseForm(); err != nil {
		return 0, false, fmt.Errorf("%w: %v", httpx.ErrInvalidArgument, err)
	}
	if raw, ok := r.Form["interval"]; ok && len(raw) > 0 {
		i, err := interval.Parse(raw[0])
		return i, err == nil, err
	}
	for _, choice := range interval.Choices {
		if _, ok := r.Form[choice.String()]; ok {
			return choice, true, nil
		}
	}
	return 0, false, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
