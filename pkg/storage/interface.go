package storage

import (
	"context"
	"errors"
)

// ErrIO is wrapped by every backend failure to read or write durable state.
var ErrIO = errors.New("storage i/o failure")

// Log is an append-only sequence of encoded records.
// Implementations: file (production), badger (embedded KV), memory (testing)
type Log interface {
	// Append durably adds one complete record to the end of the log
	Append(ctx context.Context, record []byte) error

	// ReadAll returns the whole log. An absent log is empty, not an error.
	ReadAll(ctx context.Context) ([]byte, error)

	// Close releases the backend
	Close() error
}

// Slot holds a single durable value that is overwritten, never appended.
type Slot interface {
	// Load returns the stored value, or nil if nothing was ever stored
	Load(ctx context.Context) ([]byte, error)

	// Store replaces the value
	Store(ctx context.Context, value []byte) error
}

// Sizer is implemented by backends that can report their on-disk footprint.
type Sizer interface {
	SizeBytes() (int64, error)
}
