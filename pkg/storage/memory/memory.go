package memory

import (
	"context"
	"sync"
)

// Log stores records in memory. Data is lost on restart.
// Useful for testing and development.
type Log struct {
	data []byte
	mu   sync.RWMutex
}

// New creates an in-memory log
func New() *Log {
	return &Log{data: make([]byte, 0, 4096)}
}

// Append adds a record to the end of the log
func (l *Log) Append(ctx context.Context, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data = append(l.data, record...)
	return nil
}

// AppendRaw adds arbitrary bytes, including partial records. Tests use it to
// simulate interrupted writes.
func (l *Log) AppendRaw(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, b...)
}

// ReadAll returns a copy of the log
func (l *Log) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Return a copy so callers never alias the live buffer
	out := make([]byte, len(l.data))
	copy(out, l.data)
	return out, nil
}

// SizeBytes returns the log length
func (l *Log) SizeBytes() (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.data)), nil
}

// Close is a no-op for memory storage
func (l *Log) Close() error {
	return nil
}

// Slot stores a single value in memory
type Slot struct {
	value []byte
	mu    sync.RWMutex
}

// NewSlot creates an empty in-memory slot
func NewSlot() *Slot {
	return &Slot{}
}

// Load returns the stored value or nil
func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.value == nil {
		return nil, nil
	}
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out, nil
}

// Store replaces the value
func (s *Slot) Store(ctx context.Context, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = append([]byte(nil), value...)
	return nil
}
