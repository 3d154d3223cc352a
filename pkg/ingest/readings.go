package ingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"

	"github.com/nicktill/tinyweather/pkg/axis"
	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/httpx"
	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/window"
)

// ReadingsResponse is the JSON form of the current window.
type ReadingsResponse struct {
	Readings []reading.Reading `json:"readings"`
	Latest   *reading.Reading  `json:"latest,omitempty"`
	Skipped  int               `json:"skipped"`

	// TemperatureAxis is omitted while the window is empty
	TemperatureAxis *axis.Range       `json:"temperature_axis,omitempty"`
	HumidityAxis    axis.Range        `json:"humidity_axis"`
	Interval        interval.Interval `json:"interval"`
	WindowSize      int               `json:"window_size"`
}

// HandleReadings serves GET /v1/readings. The ETag is a hash of the window's
// encoded records, so a poller sees 304 until a new reading lands.
func (h *Handler) HandleReadings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.RenderTimeout)
	defer cancel()

	win, err := h.station.Window(ctx)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}
	current, err := h.station.Interval(ctx)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}

	etag := windowETag(h.station.Codec(), win, current)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := ReadingsResponse{
		Readings:     win.Readings,
		Latest:       win.Latest,
		Skipped:      win.Skipped,
		HumidityAxis: axis.HumidityRange,
		Interval:     current,
		WindowSize:   h.station.WindowSize(),
	}
	if tempAxis, err := axis.Compute(win.Temperatures()); err == nil {
		resp.TemperatureAxis = &tempAxis
	}

	httpx.RespondJSON(w, http.StatusOK, resp)
}

func windowETag(codec *reading.Codec, win window.Window, current interval.Interval) string {
	d := xxhash.New()
	for _, rd := range win.Readings {
		_, _ = d.Write(codec.Encode(rd))
	}
	// The interval is part of the body, so it is part of the tag
	_, _ = d.WriteString(current.String())
	return fmt.Sprintf(`"%016x"`, d.Sum64())
}
