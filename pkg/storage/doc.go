/*
Package storage provides the pluggable persistence abstraction for TinyWeather.

# Durable State

TinyWeather keeps exactly two pieces of durable state:

  - the reading log: an unbounded, append-only sequence of encoded records
  - the interval slot: a single scalar that is overwritten on every change

Backends implement the Log and Slot interfaces:

	type Log interface {
	    Append(ctx context.Context, record []byte) error
	    ReadAll(ctx context.Context) ([]byte, error)
	    Close() error
	}

	type Slot interface {
	    Load(ctx context.Context) ([]byte, error)
	    Store(ctx context.Context, value []byte) error
	}

Available backends:

  - file: raw.html + interval.txt in a data directory (default, matches the sensor's polling URL)
  - badger: both slots in one BadgerDB directory, records checksummed with xxhash
  - memory: in-process only, for tests

# Torn Records

Appends are serialized by the backend, but readers are not blocked while an
append is in flight. A reader may therefore see a partially written final
record. The window extractor drops any bytes after the last complete end
marker, so a torn tail is treated as absent rather than corrupt.

# Growth

The log is never compacted or rotated. At one reading per minute it grows by
roughly 60 MB per year; retention is a deployment concern. The server exposes
the current size at GET /v1/storage.

# Errors

Every backend failure wraps ErrIO, so callers can distinguish storage outages
from bad input:

	if errors.Is(err, storage.ErrIO) {
	    // 500, the sensor will retry on its next cycle
	}
*/
package storage
