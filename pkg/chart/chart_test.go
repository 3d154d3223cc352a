package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func series(n int) []Point {
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	points := make([]Point, n)
	for i := range points {
		points[i] = NewPoint(start.Add(time.Duration(i)*10*time.Minute), 18+float64(i%5))
	}
	return points
}

func TestNewPoint_Label(t *testing.T) {
	p := NewPoint(time.Date(2024, 7, 1, 9, 5, 0, 0, time.UTC), 1)
	require.Equal(t, "09:05", p.Label)
}

func TestRender_SVG(t *testing.T) {
	art, err := NewRenderer().Render(series(16), Config{AxisMin: 10, AxisMax: 30, FontSize: 12})
	require.NoError(t, err)

	svg := string(art.SVG)
	require.True(t, strings.HasPrefix(strings.TrimSpace(svg), "<svg"), "expected SVG markup")
	require.Contains(t, svg, `width="700"`)
	require.Contains(t, svg, `height="300"`)
	require.Contains(t, svg, "09:00")
	require.Contains(t, svg, "11:30")
	require.Empty(t, art.Script)
}

func TestRender_SinglePoint(t *testing.T) {
	art, err := NewRenderer().Render(series(1), Config{AxisMin: 0, AxisMax: 100})
	require.NoError(t, err)
	require.Contains(t, string(art.SVG), "09:00")
}

func TestRender_CustomSize(t *testing.T) {
	art, err := NewRenderer().Render(series(3), Config{AxisMin: 0, AxisMax: 50, Width: 400, Height: 200})
	require.NoError(t, err)
	require.Contains(t, string(art.SVG), `width="400"`)
}

func TestRender_Errors(t *testing.T) {
	_, err := NewRenderer().Render(nil, Config{AxisMin: 0, AxisMax: 10})
	require.ErrorIs(t, err, ErrNoPoints)

	_, err = NewRenderer().Render(series(2), Config{AxisMin: 10, AxisMax: 10})
	require.Error(t, err)
}
