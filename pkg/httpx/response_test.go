package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/station"
	"github.com/nicktill/tinyweather/pkg/storage"
)

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()

	RespondError(rr, http.StatusBadRequest, errors.New("invalid interval: 5"))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "Bad Request", resp.Error)
	require.Equal(t, "invalid interval: 5", resp.Message)
}

func TestRespondText(t *testing.T) {
	rr := httptest.NewRecorder()

	RespondText(rr, http.StatusOK, "10")

	require.Equal(t, "10", rr.Body.String())
	require.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: temperature missing", ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("set: %w", interval.ErrInvalidInterval), http.StatusBadRequest},
		{station.ErrInvalidReading, http.StatusBadRequest},
		{fmt.Errorf("append: %w", storage.ErrIO), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, StatusFor(tt.err), "error %v", tt.err)
	}
}

func TestRespondFailure(t *testing.T) {
	rr := httptest.NewRecorder()

	RespondFailure(rr, fmt.Errorf("%w: humidity missing", ErrInvalidArgument))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "humidity missing")
}
