// Package window extracts the most recent readings from an encoded log.
package window

import (
	"bytes"

	"github.com/nicktill/tinyweather/pkg/reading"
)

// DefaultSize is the number of readings shown on the dashboard.
const DefaultSize = 16

// Window is the last N readings of the log, oldest first.
type Window struct {
	Readings []reading.Reading `json:"readings"`

	// Latest is the most recent reading, nil when the log holds none.
	Latest *reading.Reading `json:"latest,omitempty"`

	// Skipped counts malformed records passed over during the scan.
	Skipped int `json:"skipped"`
}

// Len returns the number of readings in the window.
func (w Window) Len() int {
	return len(w.Readings)
}

// Temperatures returns the temperature series in window order.
func (w Window) Temperatures() []float64 {
	values := make([]float64, len(w.Readings))
	for i, r := range w.Readings {
		values[i] = r.Temperature
	}
	return values
}

// Humidities returns the humidity series in window order.
func (w Window) Humidities() []float64 {
	values := make([]float64, len(w.Readings))
	for i, r := range w.Readings {
		values[i] = r.Humidity
	}
	return values
}

// Extractor finds the tail of a log by scanning backwards for record markers.
type Extractor struct {
	codec *reading.Codec
}

// NewExtractor creates an extractor decoding records with codec.
func NewExtractor(codec *reading.Codec) *Extractor {
	return &Extractor{codec: codec}
}

// Extract returns the last min(n, records) readings of data in chronological
// order. Record lengths vary, so every marker is located by a reverse search
// rather than stepping back a fixed stride. Bytes after the last end marker
// belong to an append still in flight and are ignored. Malformed records are
// skipped and counted.
func (e *Extractor) Extract(data []byte, n int) Window {
	var w Window
	if n <= 0 {
		return w
	}

	data = completePrefix(data)

	collected := make([]reading.Reading, 0, n)
	pos := len(data)
	for len(collected) < n && pos > 0 {
		marker := bytes.LastIndex(data[:pos], reading.StartMarker)
		if marker < 0 {
			break
		}
		pos = marker

		r, _, err := e.codec.Decode(data, marker)
		if err != nil {
			w.Skipped++
			continue
		}
		collected = append(collected, r)
	}

	// Collected newest first; flip to chronological order
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	w.Readings = collected
	if len(collected) > 0 {
		latest := collected[len(collected)-1]
		w.Latest = &latest
	}
	return w
}

// completePrefix trims data to end at its last complete record.
func completePrefix(data []byte) []byte {
	end := bytes.LastIndex(data, reading.EndMarker)
	if end < 0 {
		return nil
	}
	return data[:end+len(reading.EndMarker)]
}
