package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/httpx"
	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/station"
)

var (
	// ErrMissingParameter is returned when a reading value is absent.
	ErrMissingParameter = fmt.Errorf("%w: missing parameter", httpx.ErrInvalidArgument)

	// ErrInvalidValue is returned when a reading value is not a number.
	ErrInvalidValue = fmt.Errorf("%w: invalid value", httpx.ErrInvalidArgument)
)

// Parameter names accepted for each value. The capitalized spellings are
// what older sensor firmware sends.
var (
	temperatureParams = []string{"temperature", "Temperature"}
	humidityParams    = []string{"humidity", "Humidity"}
)

// Handler serves the sensor-facing endpoints.
type Handler struct {
	station *station.Station
}

// NewHandler creates a new ingest handler
func NewHandler(st *station.Station) *Handler {
	return &Handler{station: st}
}

// IngestRequest is the JSON form of a reading submission.
type IngestRequest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// IngestResponse represents the response payload
type IngestResponse struct {
	Status  string          `json:"status"`
	Reading reading.Reading `json:"reading"`
}

// HandleIngest handles /collect and /v1/ingest. Values come from the query
// string, a form body, or a JSON body.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httpx.RespondErrorString(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	temperature, humidity, err := parseReading(r)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.IngestTimeout)
	defer cancel()

	rd, err := h.station.Record(ctx, temperature, humidity)
	if err != nil {
		httpx.RespondFailure(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, IngestResponse{
		Status:  "success",
		Reading: rd,
	})
}

func parseReading(r *http.Request) (temperature, humidity float64, err error) {
	if isJSON(r) {
		return parseJSONReading(r)
	}

	if err := r.ParseForm(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", httpx.ErrInvalidArgument, err)
	}
	if temperature, err = formFloat(r, temperatureParams); err != nil {
		return 0, 0, err
	}
	if humidity, err = formFloat(r, humidityParams); err != nil {
		return 0, 0, err
	}
	return temperature, humidity, nil
}

func parseJSONReading(r *http.Request) (float64, float64, error) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if req.Temperature == nil {
		return 0, 0, fmt.Errorf("%w: temperature", ErrMissingParameter)
	}
	if req.Humidity == nil {
		return 0, 0, fmt.Errorf("%w: humidity", ErrMissingParameter)
	}
	return *req.Temperature, *req.Humidity, nil
}

// formFloat returns the first non-empty value among names.
func formFloat(r *http.Request, names []string) (float64, error) {
	for _, name := range names {
		raw := strings.TrimSpace(r.Form.Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, raw)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingParameter, names[0])
}

func isJSON(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
