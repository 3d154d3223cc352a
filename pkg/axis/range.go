// Package axis computes padded chart ranges for reading series.
package axis

import (
	"errors"
	"math"
)

// Tick is the spacing the range bounds snap to.
const Tick = 5.0

// bias nudges bounds away from the data before rounding, so values do not
// sit exactly on a tick.
const bias = 0.25

// ErrNoValues is returned when there is nothing to compute a range from.
var ErrNoValues = errors.New("no values")

// Range is an inclusive display range for a chart's value axis.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// HumidityRange is the fixed axis for relative humidity.
var HumidityRange = Range{Min: 0, Max: 100}

// Compute snaps the smallest and largest value outward to a multiple of Tick
// and pads by one more tick on each side:
//
//	min = 5*round(rawMin/5 - 0.25) - 5
//	max = 5*round(rawMax/5 + 0.25) + 5
//
// The result does not depend on the order of values.
func Compute(values []float64) (Range, error) {
	if len(values) == 0 {
		return Range{}, ErrNoValues
	}

	rawMin, rawMax := values[0], values[0]
	for _, v := range values[1:] {
		rawMin = math.Min(rawMin, v)
		rawMax = math.Max(rawMax, v)
	}

	return Range{
		Min: Tick*math.Round(rawMin/Tick-bias) - Tick,
		Max: Tick*math.Round(rawMax/Tick+bias) + Tick,
	}, nil
}
