// Package interval persists the sensor's sampling interval.
package interval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nicktill/tinyweather/pkg/storage"
)

// Interval is a sampling period in minutes.
type Interval int

// The only intervals the sensor supports
const (
	OneMinute    Interval = 1
	TenMinutes   Interval = 10
	SixtyMinutes Interval = 60
)

// Default applies when no interval was ever stored. It matches the sensor
// firmware's own fallback.
const Default = TenMinutes

// Choices lists valid intervals in display order.
var Choices = []Interval{OneMinute, TenMinutes, SixtyMinutes}

// ErrInvalidInterval is returned for values outside Choices.
var ErrInvalidInterval = errors.New("invalid interval")

// Valid reports whether i is one of Choices.
func (i Interval) Valid() bool {
	switch i {
	case OneMinute, TenMinutes, SixtyMinutes:
		return true
	}
	return false
}

// String returns the number of minutes, the form stored and served to the sensor.
func (i Interval) String() string {
	return strconv.Itoa(int(i))
}

// Parse converts s ("1", "10" or "60") into an Interval.
func Parse(s string) (Interval, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInterval, s)
	}
	i := Interval(n)
	if !i.Valid() {
		return 0, fmt.Errorf("%w: %d (must be one of 1, 10, 60)", ErrInvalidInterval, n)
	}
	return i, nil
}

// Store validates and persists the interval in a single overwrite-only slot.
type Store struct {
	slot     storage.Slot
	fallback Interval
}

// NewStore creates a store over slot. fallback is returned until a value is
// set; an invalid fallback is replaced by Default.
func NewStore(slot storage.Slot, fallback Interval) *Store {
	if !fallback.Valid() {
		fallback = Default
	}
	return &Store{slot: slot, fallback: fallback}
}

// Get returns the current interval. An unset or unreadable value yields the
// fallback; storage failures are returned as errors.
func (s *Store) Get(ctx context.Context) (Interval, error) {
	raw, err := s.slot.Load(ctx)
	if err != nil {
		return s.fallback, fmt.Errorf("load interval: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return s.fallback, nil
	}
	i, err := Parse(string(raw))
	if err != nil {
		return s.fallback, nil
	}
	return i, nil
}

// Set overwrites the stored interval. Values outside Choices are rejected
// before anything is written.
func (s *Store) Set(ctx context.Context, i Interval) error {
	if !i.Valid() {
		return fmt.Errorf("%w: %d (must be one of 1, 10, 60)", ErrInvalidInterval, int(i))
	}
	if err := s.slot.Store(ctx, []byte(i.String())); err != nil {
		return fmt.Errorf("store interval: %w", err)
	}
	return nil
}
