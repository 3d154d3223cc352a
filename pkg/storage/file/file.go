package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nicktill/tinyweather/pkg/storage"
)

// Default file names inside the data directory. These match the paths the
// sensor firmware polls and the legacy collector wrote.
const (
	LogFileName      = "raw.html"
	IntervalFileName = "interval.txt"
)

// Log is a flat-file append log.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog creates a log stored at path. The file is created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes record to the end of the log and flushes it to disk.
// Appends are serialized in-process and, across processes, with an
// exclusive lock held for the whole open-write-sync-close cycle.
func (l *Log) Append(ctx context.Context, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open log: %w", storage.ErrIO, err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("%w: lock log: %w", storage.ErrIO, err)
	}
	defer unlockFile(f)

	// One write call per record keeps concurrent readers from seeing
	// interleaved fragments of two records.
	if _, err := f.Write(record); err != nil {
		return fmt.Errorf("%w: write log: %w", storage.ErrIO, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync log: %w", storage.ErrIO, err)
	}
	return nil
}

// ReadAll returns the full log content. A missing file reads as empty.
func (l *Log) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read log: %w", storage.ErrIO, err)
	}
	return data, nil
}

// SizeBytes returns the logical size of the log file.
func (l *Log) SizeBytes() (int64, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: stat log: %w", storage.ErrIO, err)
	}
	return info.Size(), nil
}

// Close is a no-op; the file is only open during an append.
func (l *Log) Close() error {
	return nil
}

// Slot is a single-value file, replaced atomically on every Store.
type Slot struct {
	path string
	mu   sync.Mutex
}

// NewSlot creates a slot stored at path.
func NewSlot(path string) *Slot {
	return &Slot{path: path}
}

// Path returns the slot file location.
func (s *Slot) Path() string {
	return s.path
}

// Load returns the slot content, or nil if it was never written.
func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read slot: %w", storage.ErrIO, err)
	}
	return data, nil
}

// Store writes value to a temporary file and renames it over the slot so
// readers observe either the old or the new value, never a mix.
func (s *Slot) Store(ctx context.Context, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp slot: %w", storage.ErrIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write slot: %w", storage.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: sync slot: %w", storage.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close slot: %w", storage.ErrIO, err)
	}
	// CreateTemp uses 0600; the sensor fetches this file through a web server.
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod slot: %w", storage.ErrIO, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace slot: %w", storage.ErrIO, err)
	}
	return nil
}

// Open creates the data directory and returns the log and interval slot
// stored in it.
func Open(dataDir string) (*Log, *Slot, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("%w: create data directory: %w", storage.ErrIO, err)
	}
	return NewLog(filepath.Join(dataDir, LogFileName)), NewSlot(filepath.Join(dataDir, IntervalFileName)), nil
}
