package reading

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Record layout, one per reading:
//
//	<p>2006-01-02 15:04:05&nbsp;&nbsp;&nbsp;&nbsp;Temperature: 21.5 &deg;C&nbsp;&nbsp;&nbsp;&nbsp;Humidity: 45</p>
//
// Record length varies with the number representation (sign, digit count),
// so nothing may rely on a fixed stride between records.
const (
	TimestampLayout = "2006-01-02 15:04:05"

	separator = "&nbsp;&nbsp;&nbsp;&nbsp;"
	unitToken = "&deg;C"
)

var (
	// StartMarker opens every record.
	StartMarker = []byte("<p>")

	// EndMarker closes every record.
	EndMarker = []byte("</p>")

	temperatureLabel = []byte("Temperature:")
	humidityLabel    = []byte("Humidity:")
)

// ErrMalformedRecord is returned when a record cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// Codec converts readings to and from the log's textual record format.
// Timestamps are written and parsed in the codec's zone.
type Codec struct {
	loc *time.Location
}

// NewCodec creates a codec using loc for timestamps. A nil loc means UTC.
func NewCodec(loc *time.Location) *Codec {
	if loc == nil {
		loc = time.UTC
	}
	return &Codec{loc: loc}
}

// Location returns the zone timestamps are encoded in.
func (c *Codec) Location() *time.Location {
	return c.loc
}

// Encode serializes r as one self-delimited record.
func (c *Codec) Encode(r Reading) []byte {
	ts := r.Timestamp.In(c.loc).Truncate(time.Minute)

	var buf bytes.Buffer
	buf.Grow(96)
	buf.Write(StartMarker)
	buf.WriteString(ts.Format(TimestampLayout))
	buf.WriteString(separator)
	buf.Write(temperatureLabel)
	buf.WriteByte(' ')
	buf.WriteString(formatNumber(r.Temperature))
	buf.WriteByte(' ')
	buf.WriteString(unitToken)
	buf.WriteString(separator)
	buf.Write(humidityLabel)
	buf.WriteByte(' ')
	buf.WriteString(formatNumber(r.Humidity))
	buf.Write(EndMarker)
	return buf.Bytes()
}

// Decode parses the first record starting at or after offset start.
// It returns the reading and the offset just past the record's end marker.
// A record whose end marker is missing, or which is interrupted by the start
// of another record, fails with ErrMalformedRecord.
func (c *Codec) Decode(data []byte, start int) (Reading, int, error) {
	if start < 0 || start > len(data) {
		return Reading{}, start, fmt.Errorf("%w: offset %d out of range", ErrMalformedRecord, start)
	}

	rel := bytes.Index(data[start:], StartMarker)
	if rel < 0 {
		return Reading{}, len(data), fmt.Errorf("%w: no record marker after offset %d", ErrMalformedRecord, start)
	}
	begin := start + rel
	body := data[begin+len(StartMarker):]

	end := bytes.Index(body, EndMarker)
	if end < 0 {
		return Reading{}, len(data), fmt.Errorf("%w: unterminated record at offset %d", ErrMalformedRecord, begin)
	}
	if next := bytes.Index(body[:end], StartMarker); next >= 0 {
		// A torn fragment followed by a complete record.
		resume := begin + len(StartMarker) + next
		return Reading{}, resume, fmt.Errorf("%w: truncated record at offset %d", ErrMalformedRecord, begin)
	}
	body = body[:end]
	next := begin + len(StartMarker) + end + len(EndMarker)

	r, err := c.parseBody(body)
	if err != nil {
		return Reading{}, next, fmt.Errorf("%w at offset %d: %v", ErrMalformedRecord, begin, err)
	}
	return r, next, nil
}

// parseBody decodes the bytes between the start and end markers.
func (c *Codec) parseBody(body []byte) (Reading, error) {
	if len(body) < len(TimestampLayout) {
		return Reading{}, errors.New("record too short for timestamp")
	}
	ts, err := time.ParseInLocation(TimestampLayout, string(body[:len(TimestampLayout)]), c.loc)
	if err != nil {
		return Reading{}, fmt.Errorf("timestamp: %v", err)
	}

	rest := body[len(TimestampLayout):]
	ti := bytes.Index(rest, temperatureLabel)
	if ti < 0 {
		return Reading{}, errors.New("missing temperature label")
	}
	rest = bytes.TrimLeft(rest[ti+len(temperatureLabel):], " ")
	sp := bytes.IndexByte(rest, ' ')
	if sp < 0 {
		return Reading{}, errors.New("missing temperature delimiter")
	}
	temperature, err := parseNumber(rest[:sp])
	if err != nil {
		return Reading{}, fmt.Errorf("temperature: %v", err)
	}

	rest = rest[sp:]
	hi := bytes.Index(rest, humidityLabel)
	if hi < 0 {
		return Reading{}, errors.New("missing humidity label")
	}
	humidity, err := parseNumber(bytes.TrimSpace(rest[hi+len(humidityLabel):]))
	if err != nil {
		return Reading{}, fmt.Errorf("humidity: %v", err)
	}

	return New(ts, temperature, humidity), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseNumber(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(string(b), 64)
}
