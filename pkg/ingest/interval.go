package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/httpx"
	"github.com/nicktill/tinyweather/pkg/interval"
)

// IntervalResponse carries the sampling interval in minutes.
type IntervalResponse struct {
	Interval interval.Interval `json:"interval"`
}

// HandleIntervalText serves /interval.txt, the plain value the sensor polls.
func (h *Handler) HandleIntervalText(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.IntervalTimeout)
	defer cancel()

	current, err := h.station.Interval(ctx)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}
	httpx.RespondText(w, http.StatusOK, current.String())
}

// HandleInterval serves GET, PUT and POST on /v1/interval.
func (h *Handler) HandleInterval(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.IntervalTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		next, err := parseInterval(r)
		if err != nil {
			httpx.RespondFailure(w, err)
			return
		}
		if err := h.station.SetInterval(ctx, next); err != nil {
			httpx.RespondFailure(w, err)
			return
		}
	default:
		httpx.RespondErrorString(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	current, err := h.station.Interval(ctx)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, IntervalResponse{Interval: current})
}

func parseInterval(r *http.Request) (interval.Interval, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req struct {
			Interval *int `json:"interval"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return 0, fmt.Errorf("%w: %v", httpx.ErrInvalidArgument, err)
		}
		if req.Interval == nil {
			return 0, fmt.Errorf("%w: interval", ErrMissingParameter)
		}
		i := interval.Interval(*req.Interval)
		if !i.Valid() {
			return 0, fmt.Errorf("%w: %d", interval.ErrInvalidInterval, *req.Interval)
		}
		return i, nil
	}

	if err := r.ParseForm(); err != nil {
		return 0, fmt.Errorf("%w: %v", httpx.ErrInvalidArgument, err)
	}
	raw := r.Form.Get("interval")
	if raw == "" {
		return 0, fmt.Errorf("%w: interval", ErrMissingParameter)
	}
	return interval.Parse(raw)
}
