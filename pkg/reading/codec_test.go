package reading

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func helsinki(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)
	return loc
}

func TestCodec_EncodeFormat(t *testing.T) {
	codec := NewCodec(helsinki(t))
	r := New(time.Date(2024, 3, 5, 10, 7, 42, 0, time.UTC), 21.5, 45)

	got := string(codec.Encode(r))

	want := "<p>2024-03-05 12:07:00&nbsp;&nbsp;&nbsp;&nbsp;Temperature: 21.5 &deg;C" +
		"&nbsp;&nbsp;&nbsp;&nbsp;Humidity: 45</p>"
	require.Equal(t, want, got)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(helsinki(t))
	base := time.Date(2024, 1, 15, 8, 30, 0, 0, codec.Location())

	tests := []struct {
		name        string
		temperature float64
		humidity    float64
	}{
		{"typical", 21.5, 45},
		{"negative temperature", -12.3, 87},
		{"single digit humidity", 4.1, 7},
		{"two digit humidity", 19.9, 99},
		{"hundred percent", 0, 100},
		{"fractional humidity", -0.5, 55.25},
		{"large magnitude", -40, 0.1},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(base.Add(time.Duration(i)*time.Minute), tt.temperature, tt.humidity)
			encoded := codec.Encode(r)

			got, next, err := codec.Decode(encoded, 0)
			require.NoError(t, err)
			require.Equal(t, len(encoded), next)
			require.True(t, got.Equal(r), "got %v, want %v", got, r)
		})
	}
}

func TestCodec_DecodeLegacyRecord(t *testing.T) {
	codec := NewCodec(helsinki(t))
	// Written by the legacy collector, seconds included.
	data := []byte("<p>2019-06-01 18:42:17&nbsp;&nbsp;&nbsp;&nbsp;Temperature: 23.4 &deg;C" +
		"&nbsp;&nbsp;&nbsp;&nbsp;Humidity: 51</p>")

	got, _, err := codec.Decode(data, 0)
	require.NoError(t, err)
	require.Equal(t, 23.4, got.Temperature)
	require.Equal(t, 51.0, got.Humidity)
	require.True(t, got.Timestamp.Equal(time.Date(2019, 6, 1, 18, 42, 0, 0, codec.Location())))
}

func TestCodec_DecodeFromOffset(t *testing.T) {
	codec := NewCodec(time.UTC)
	first := New(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1, 10)
	second := New(time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC), -2.5, 20)

	data := append(codec.Encode(first), codec.Encode(second)...)

	got, next, err := codec.Decode(data, 0)
	require.NoError(t, err)
	require.True(t, got.Equal(first))

	got, next, err = codec.Decode(data, next)
	require.NoError(t, err)
	require.True(t, got.Equal(second))
	require.Equal(t, len(data), next)

	_, _, err = codec.Decode(data, next)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestCodec_DecodeMalformed(t *testing.T) {
	codec := NewCodec(time.UTC)

	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no marker", "Temperature: 1 &deg;C Humidity: 2</p>"},
		{"unterminated", "<p>2024-01-01 00:00:00&nbsp;Temperature: 21.5 &deg;C&nbsp;Humidity: 4"},
		{"short timestamp", "<p>2024-01-01</p>"},
		{"bad timestamp", "<p>2024-13-45 99:00:00&nbsp;Temperature: 1 &deg;C&nbsp;Humidity: 2</p>"},
		{"missing temperature", "<p>2024-01-01 00:00:00&nbsp;Humidity: 2</p>"},
		{"missing humidity", "<p>2024-01-01 00:00:00&nbsp;Temperature: 1 &deg;C</p>"},
		{"empty humidity", "<p>2024-01-01 00:00:00&nbsp;Temperature: 1 &deg;C&nbsp;Humidity: </p>"},
		{"non numeric", "<p>2024-01-01 00:00:00&nbsp;Temperature: warm &deg;C&nbsp;Humidity: 2</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.Decode([]byte(tt.data), 0)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformedRecord), "expected ErrMalformedRecord, got %v", err)
		})
	}
}

func TestCodec_DecodeTornFragment(t *testing.T) {
	codec := NewCodec(time.UTC)
	good := New(time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), 3, 30)
	torn := []byte("<p>2024-01-01 00:04:00&nbsp;&nbsp;&nbsp;&nbsp;Temper")

	data := append(torn, codec.Encode(good)...)

	_, resume, err := codec.Decode(data, 0)
	require.ErrorIs(t, err, ErrMalformedRecord)
	require.Equal(t, len(torn), resume)

	got, _, err := codec.Decode(data, resume)
	require.NoError(t, err)
	require.True(t, got.Equal(good))
}

func TestCodec_NilLocationIsUTC(t *testing.T) {
	codec := NewCodec(nil)
	require.Equal(t, time.UTC, codec.Location())
}
