package sensor

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrSensorTimeout is returned by a source that failed to answer.
var ErrSensorTimeout = errors.New("sensor read timed out")

// Measurement is one sensor sample. Humidity is whole percent; the DHT22 is
// only accurate to about 2 %.
type Measurement struct {
	Temperature float64
	Humidity    int
}

// Source produces measurements.
type Source interface {
	Read(ctx context.Context) (Measurement, error)
}

// Simulated follows a daily temperature curve with a little noise and
// humidity moving against it.
type Simulated struct {
	// Mean and Amplitude of the daily temperature swing in °C
	Mean      float64
	Amplitude float64

	// FailureRate is the chance in [0, 1) that a read times out
	FailureRate float64

	Now  func() time.Time
	rand *rand.Rand
}

// NewSimulated creates a source seeded with seed.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{
		Mean:      8,
		Amplitude: 6,
		Now:       time.Now,
		rand:      rand.New(rand.NewSource(seed)),
	}
}

// Read returns the simulated conditions at Now.
func (s *Simulated) Read(ctx context.Context) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	if s.FailureRate > 0 && s.rand.Float64() < s.FailureRate {
		return Measurement{}, ErrSensorTimeout
	}

	now := s.Now()
	// Coldest around 04:00, warmest around 16:00
	hour := float64(now.Hour()) + float64(now.Minute())/60
	phase := (hour - 10) / 24 * 2 * math.Pi
	swing := math.Sin(phase)

	temperature := s.Mean + s.Amplitude*swing + s.rand.NormFloat64()*0.3
	humidity := 60 - 25*swing + s.rand.NormFloat64()*2

	return Measurement{
		Temperature: math.Round(temperature*10) / 10,
		Humidity:    clampHumidity(int(humidity + 0.5)),
	}, nil
}

func clampHumidity(h int) int {
	switch {
	case h < 0:
		return 0
	case h > 100:
		return 100
	}
	return h
}
