package window

import (
	"testing"
	"time"

	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 2, 10, 6, 0, 0, 0, time.UTC)

// buildLog encodes count readings one minute apart. Values alternate sign and
// digit count so record lengths differ from one record to the next.
func buildLog(codec *reading.Codec, count int) ([]byte, []reading.Reading) {
	var data []byte
	readings := make([]reading.Reading, count)
	for i := 0; i < count; i++ {
		temperature := float64(i) * 1.5
		if i%3 == 0 {
			temperature = -temperature
		}
		humidity := float64(5 + (i*37)%96)
		readings[i] = reading.New(base.Add(time.Duration(i)*time.Minute), temperature, humidity)
		data = append(data, codec.Encode(readings[i])...)
	}
	return data, readings
}

func requireReadings(t *testing.T, want, got []reading.Reading) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "index %d: got %v, want %v", i, got[i], want[i])
	}
}

func TestExtract_LastWindowInOrder(t *testing.T) {
	codec := reading.NewCodec(time.UTC)

	for _, count := range []int{16, 17, 20, 64, 500} {
		data, readings := buildLog(codec, count)

		w := NewExtractor(codec).Extract(data, DefaultSize)

		requireReadings(t, readings[count-DefaultSize:], w.Readings)
		require.Zero(t, w.Skipped)
		require.NotNil(t, w.Latest)
		require.True(t, w.Latest.Equal(readings[count-1]))
	}
}

func TestExtract_FewerThanWindow(t *testing.T) {
	codec := reading.NewCodec(time.UTC)

	for count := 0; count < DefaultSize; count++ {
		data, readings := buildLog(codec, count)

		w := NewExtractor(codec).Extract(data, DefaultSize)

		require.Equal(t, count, w.Len())
		requireReadings(t, readings, w.Readings)
		if count == 0 {
			require.Nil(t, w.Latest)
		}
	}
}

func TestExtract_TwentyReadings(t *testing.T) {
	codec := reading.NewCodec(time.UTC)
	data, readings := buildLog(codec, 20)

	w := NewExtractor(codec).Extract(data, 16)

	require.Len(t, w.Readings, 16)
	require.True(t, w.Readings[0].Timestamp.Equal(readings[4].Timestamp), "window must start at T5")
	require.True(t, w.Readings[15].Timestamp.Equal(readings[19].Timestamp), "window must end at T20")
	requireReadings(t, readings[4:], w.Readings)
}

func TestExtract_VariableRecordLengths(t *testing.T) {
	codec := reading.NewCodec(time.UTC)

	// Two short records followed by much longer ones. Stepping back by the
	// first record's length would land mid-record.
	readings := []reading.Reading{
		reading.New(base, 1, 5),
		reading.New(base.Add(1*time.Minute), 2, 6),
	}
	for i := 2; i < 30; i++ {
		readings = append(readings, reading.New(base.Add(time.Duration(i)*time.Minute), -123.456789, 99.125))
	}
	var data []byte
	for _, r := range readings {
		data = append(data, codec.Encode(r)...)
	}

	w := NewExtractor(codec).Extract(data, DefaultSize)

	requireReadings(t, readings[len(readings)-DefaultSize:], w.Readings)
}

func TestExtract_IgnoresTrailingFragment(t *testing.T) {
	codec := reading.NewCodec(time.UTC)
	data, readings := buildLog(codec, 5)

	next := codec.Encode(reading.New(base.Add(time.Hour), 20, 40))
	for cut := 1; cut < len(next); cut++ {
		partial := append(append([]byte(nil), data...), next[:cut]...)

		w := NewExtractor(codec).Extract(partial, DefaultSize)

		requireReadings(t, readings, w.Readings)
		require.Zero(t, w.Skipped, "an in-flight tail is absent, not malformed (cut=%d)", cut)
	}
}

func TestExtract_SkipsMalformedRecords(t *testing.T) {
	codec := reading.NewCodec(time.UTC)
	first, _ := buildLog(codec, 3)

	var data []byte
	data = append(data, first...)
	// Torn fragment left behind by an interrupted write
	data = append(data, "<p>2024-02-10 07:00:00&nbsp;&nbsp;&nbsp;&nbsp;Tempera"...)
	// Garbage record with a value that does not parse
	data = append(data, "<p>2024-02-10 07:01:00&nbsp;Temperature: ?? &deg;C&nbsp;Humidity: 1</p>"...)
	tail := reading.New(base.Add(2*time.Hour), 7, 70)
	data = append(data, codec.Encode(tail)...)

	w := NewExtractor(codec).Extract(data, DefaultSize)

	require.Equal(t, 2, w.Skipped)
	require.Len(t, w.Readings, 4)
	require.True(t, w.Latest.Equal(tail))
}

func TestExtract_StopsAtWindowSize(t *testing.T) {
	codec := reading.NewCodec(time.UTC)
	data, readings := buildLog(codec, 10)

	w := NewExtractor(codec).Extract(data, 3)

	requireReadings(t, readings[7:], w.Readings)
}

func TestExtract_NonPositiveSize(t *testing.T) {
	codec := reading.NewCodec(time.UTC)
	data, _ := buildLog(codec, 4)

	require.Zero(t, NewExtractor(codec).Extract(data, 0).Len())
	require.Zero(t, NewExtractor(codec).Extract(data, -1).Len())
}

func TestExtract_LegacyLog(t *testing.T) {
	codec := reading.NewCodec(time.UTC)
	data := []byte("<p>2019-06-01 18:40:03&nbsp;&nbsp;&nbsp;&nbsp;Temperature: 23.4 &deg;C&nbsp;&nbsp;&nbsp;&nbsp;Humidity: 51</p>" +
		"<p>2019-06-01 18:50:04&nbsp;&nbsp;&nbsp;&nbsp;Temperature: -1.2 &deg;C&nbsp;&nbsp;&nbsp;&nbsp;Humidity: 100</p>")

	w := NewExtractor(codec).Extract(data, DefaultSize)

	require.Len(t, w.Readings, 2)
	require.Equal(t, []float64{23.4, -1.2}, w.Temperatures())
	require.Equal(t, []float64{51, 100}, w.Humidities())
}
