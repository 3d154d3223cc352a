package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/station"
	"github.com/nicktill/tinyweather/pkg/storage"
)

// ErrInvalidArgument marks request input rejected at the HTTP boundary.
var ErrInvalidArgument = errors.New("invalid argument")

// RespondJSON writes a JSON response with the given status code and data.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// RespondText writes a plain-text body without a trailing newline.
func RespondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Printf("Failed to write text response: %v", err)
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes an error response with the given status code and error message.
func RespondError(w http.ResponseWriter, status int, err error) {
	RespondErrorString(w, status, err.Error())
}

// RespondErrorString writes an error response with the given status code and error message string.
func RespondErrorString(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	RespondJSON(w, status, response)
}

// RespondFailure picks the status code from the error's kind and writes it.
// Storage failures are logged; bad input is not.
func RespondFailure(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	RespondError(w, status, err)
}

// StatusFor maps error kinds to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, interval.ErrInvalidInterval),
		errors.Is(err, station.ErrInvalidReading):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, storage.ErrIO):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
