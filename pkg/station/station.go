// Package station ties the reading log, window extraction and interval
// setting together behind the operations the transports expose.
package station

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/storage"
	"github.com/nicktill/tinyweather/pkg/telemetry"
	"github.com/nicktill/tinyweather/pkg/window"
)

// ErrInvalidReading is returned for values that cannot be logged.
var ErrInvalidReading = errors.New("invalid reading")

// Observer is notified after state changes have been committed.
// Notifications run synchronously on the caller's goroutine.
type Observer interface {
	ReadingRecorded(r reading.Reading)
	IntervalChanged(i interval.Interval)
}

// Config wires a Station.
type Config struct {
	Log       storage.Log
	Intervals *interval.Store
	Codec     *reading.Codec

	// WindowSize defaults to window.DefaultSize
	WindowSize int

	// Now defaults to time.Now
	Now func() time.Time

	// Metrics may be nil
	Metrics *telemetry.Metrics
}

// Station records readings and serves the current window and interval.
type Station struct {
	log        storage.Log
	intervals  *interval.Store
	codec      *reading.Codec
	extractor  *window.Extractor
	windowSize int
	now        func() time.Time
	metrics    *telemetry.Metrics

	mu        sync.RWMutex
	observers []Observer
}

// New creates a Station from cfg.
func New(cfg Config) *Station {
	if cfg.Codec == nil {
		cfg.Codec = reading.NewCodec(time.UTC)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = window.DefaultSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Station{
		log:        cfg.Log,
		intervals:  cfg.Intervals,
		codec:      cfg.Codec,
		extractor:  window.NewExtractor(cfg.Codec),
		windowSize: cfg.WindowSize,
		now:        cfg.Now,
		metrics:    cfg.Metrics,
	}
}

// Subscribe registers o for change notifications.
func (s *Station) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Codec returns the record codec in use.
func (s *Station) Codec() *reading.Codec {
	return s.codec
}

// WindowSize returns the number of readings in a window.
func (s *Station) WindowSize() int {
	return s.windowSize
}

// Record logs a reading taken now. Nothing is written when the values are
// rejected or the append fails.
func (s *Station) Record(ctx context.Context, temperature, humidity float64) (reading.Reading, error) {
	if !finite(temperature) || !finite(humidity) {
		s.metrics.ObserveFailure(telemetry.ReasonInvalid)
		return reading.Reading{}, fmt.Errorf("%w: values must be finite numbers", ErrInvalidReading)
	}

	r := reading.New(s.now().In(s.codec.Location()), temperature, humidity)
	if err := s.log.Append(ctx, s.codec.Encode(r)); err != nil {
		s.metrics.ObserveFailure(telemetry.ReasonStorage)
		return reading.Reading{}, fmt.Errorf("append reading: %w", err)
	}
	s.metrics.ObserveReading(r)

	for _, o := range s.snapshotObservers() {
		o.ReadingRecorded(r)
	}
	return r, nil
}

// Window returns the most recent readings, recomputed from the log.
func (s *Station) Window(ctx context.Context) (window.Window, error) {
	data, err := s.log.ReadAll(ctx)
	if err != nil {
		return window.Window{}, fmt.Errorf("read log: %w", err)
	}
	w := s.extractor.Extract(data, s.windowSize)
	s.metrics.ObserveExtraction(w.Skipped)
	return w, nil
}

// Interval returns the current sampling interval.
func (s *Station) Interval(ctx context.Context) (interval.Interval, error) {
	return s.intervals.Get(ctx)
}

// SetInterval persists i and notifies observers.
func (s *Station) SetInterval(ctx context.Context, i interval.Interval) error {
	previous, _ := s.intervals.Get(ctx)
	if err := s.intervals.Set(ctx, i); err != nil {
		return err
	}
	s.metrics.ObserveInterval(i, previous != i)

	for _, o := range s.snapshotObservers() {
		o.IntervalChanged(i)
	}
	return nil
}

func (s *Station) snapshotObservers() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Observer(nil), s.observers...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
