// Package sensor simulates the weather station's measurement cycle: fetch
// the interval, read the sensor, upload, then sleep for the interval.
package sensor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nicktill/tinyweather/pkg/interval"
)

// Retry counts carried over from the station firmware
const (
	SensorReadRetries = 5
	CycleRetries      = 3
)

// Config wires a Sensor.
type Config struct {
	Transport Transport
	Source    Source

	// RetryDelay is the pause between sensor read attempts
	RetryDelay time.Duration

	// Sleep defaults to a context-aware time.Sleep
	Sleep func(ctx context.Context, d time.Duration) error
}

// Sensor runs measurement cycles.
type Sensor struct {
	transport  Transport
	source     Source
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a sensor from cfg.
func New(cfg Config) *Sensor {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Sensor{
		transport:  cfg.Transport,
		source:     cfg.Source,
		retryDelay: cfg.RetryDelay,
		sleep:      cfg.Sleep,
	}
}

// Cycle runs one measurement, retrying the whole exchange up to
// CycleRetries times. It always returns the interval to sleep for; when the
// server could not be asked, that is interval.Default.
func (s *Sensor) Cycle(ctx context.Context) (interval.Interval, error) {
	next := interval.Default
	var err error
	for attempt := 1; attempt <= CycleRetries; attempt++ {
		next, err = s.readSend(ctx)
		if err == nil {
			return next, nil
		}
		if ctx.Err() != nil {
			return next, ctx.Err()
		}
		log.Printf("⚠️  Measurement attempt %d/%d failed: %v", attempt, CycleRetries, err)
	}
	return next, err
}

func (s *Sensor) readSend(ctx context.Context) (interval.Interval, error) {
	next, err := s.transport.FetchInterval(ctx)
	if err != nil {
		return interval.Default, fmt.Errorf("fetch interval: %w", err)
	}

	m, err := s.read(ctx)
	if err != nil {
		return next, err
	}
	if err := s.transport.Send(ctx, m); err != nil {
		return next, fmt.Errorf("send measurement: %w", err)
	}
	log.Printf("✅ Sent %.1f °C, %d %% (next in %s min)", m.Temperature, m.Humidity, next)
	return next, nil
}

func (s *Sensor) read(ctx context.Context) (Measurement, error) {
	var err error
	for attempt := 0; attempt < SensorReadRetries; attempt++ {
		if err = s.sleep(ctx, s.retryDelay); err != nil {
			return Measurement{}, err
		}
		var m Measurement
		if m, err = s.source.Read(ctx); err == nil {
			return m, nil
		}
	}
	return Measurement{}, fmt.Errorf("read sensor after %d attempts: %w", SensorReadRetries, err)
}

// Run repeats Cycle until ctx is cancelled, sleeping minute for each
// interval minute.
func (s *Sensor) Run(ctx context.Context, minute time.Duration) error {
	for {
		next, err := s.Cycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("❌ Measurement failed, sleeping %s min: %v", next, err)
		}
		if err := s.sleep(ctx, time.Duration(next)*minute); err != nil {
			return nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
