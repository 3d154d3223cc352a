package reading

import (
	"fmt"
	"time"
)

// Reading is one timestamped temperature/humidity sample.
// Timestamps carry minute precision; Temperature is degrees Celsius and
// Humidity is relative humidity in percent.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// New creates a Reading taken at t, truncated to the minute.
func New(t time.Time, temperature, humidity float64) Reading {
	return Reading{
		Timestamp:   t.Truncate(time.Minute),
		Temperature: temperature,
		Humidity:    humidity,
	}
}

// Equal reports whether two readings describe the same sample.
func (r Reading) Equal(other Reading) bool {
	return r.Timestamp.Equal(other.Timestamp) &&
		r.Temperature == other.Temperature &&
		r.Humidity == other.Humidity
}

func (r Reading) String() string {
	return fmt.Sprintf("%s temperature=%g°C humidity=%g%%",
		r.Timestamp.Format(time.RFC3339), r.Temperature, r.Humidity)
}
