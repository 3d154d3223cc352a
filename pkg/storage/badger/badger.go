package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/nicktill/tinyweather/pkg/storage"
)

var (
	// Log records: logPrefix + big-endian sequence number
	logPrefix = []byte("log/")

	intervalKey = []byte("slot/interval")
)

const checksumSize = 8

// Storage implements storage.Log on BadgerDB and hands out storage.Slot
// views over single keys in the same database.
type Storage struct {
	db *badger.DB

	mu  sync.Mutex // serializes appends so sequence numbers stay dense
	seq uint64
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = laptop-friendly defaults)
	MaxMemoryMB int64
}

// New opens a BadgerDB backend and restores the append sequence
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// A reading log is tiny; keep the memtable small.
	memTableSize := int64(8 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(2).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithNumCompactors(2).
		WithValueLogFileSize(16 << 20).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger: %w", storage.ErrIO, err)
	}

	s := &Storage{db: db}
	if err := s.restoreSequence(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// restoreSequence finds the highest record key written so far
func (s *Storage) restoreSequence() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = logPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the largest key <= the seek key
		it.Seek(recordKey(^uint64(0)))
		if it.ValidForPrefix(logPrefix) {
			s.seq = parseRecordKey(it.Item().Key())
		}
		return nil
	})
}

// Append stores record under the next sequence number
func (s *Storage) Append(ctx context.Context, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.seq + 1
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(next), sealRecord(record))
	})
	if err != nil {
		return fmt.Errorf("%w: append record %d: %w", storage.ErrIO, next, err)
	}
	s.seq = next
	return nil
}

// ReadAll concatenates all records in append order. Records that fail their
// checksum are dropped, the same way a torn tail is dropped from a flat file.
func (s *Storage) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	var corrupt int

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = logPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var iterCount int
		for it.Seek(logPrefix); it.ValidForPrefix(logPrefix); it.Next() {
			iterCount++
			if iterCount%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			err := it.Item().Value(func(val []byte) error {
				record, ok := openRecord(val)
				if !ok {
					corrupt++
					return nil
				}
				out = append(out, record...)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read log: %w", storage.ErrIO, err)
	}

	if corrupt > 0 {
		log.Printf("Dropped %d badger records with bad checksums", corrupt)
	}
	return out, nil
}

// IntervalSlot returns the slot holding the sampling interval
func (s *Storage) IntervalSlot() *Slot {
	return &Slot{db: s.db, key: intervalKey}
}

// SizeBytes reports LSM plus value log size
func (s *Storage) SizeBytes() (int64, error) {
	lsmSize, vlogSize := s.db.Size()
	return lsmSize + vlogSize, nil
}

// RunGC runs BadgerDB's value log garbage collection once.
// Interval overwrites are the only source of garbage.
// Returns badger.ErrNoRewrite when nothing needed collecting.
func (s *Storage) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	return s.db.Close()
}

// Slot is a single BadgerDB key used as an overwrite-only value
type Slot struct {
	db  *badger.DB
	key []byte
}

// Load returns the slot value or nil if the key was never written
func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", storage.ErrIO, s.key, err)
	}
	return value, nil
}

// Store overwrites the slot value
func (s *Slot) Store(ctx context.Context, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: store %s: %w", storage.ErrIO, s.key, err)
	}
	return nil
}

// recordKey creates a sortable key: prefix + sequence (8 bytes, big endian)
func recordKey(seq uint64) []byte {
	key := make([]byte, len(logPrefix)+8)
	copy(key, logPrefix)
	binary.BigEndian.PutUint64(key[len(logPrefix):], seq)
	return key
}

// parseRecordKey extracts the sequence number from a record key
func parseRecordKey(key []byte) uint64 {
	if len(key) != len(logPrefix)+8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(logPrefix):])
}

// sealRecord prefixes the record with its xxhash64 checksum
func sealRecord(record []byte) []byte {
	value := make([]byte, checksumSize+len(record))
	binary.BigEndian.PutUint64(value[:checksumSize], xxhash.Sum64(record))
	copy(value[checksumSize:], record)
	return value
}

// openRecord verifies and strips the checksum
func openRecord(value []byte) ([]byte, bool) {
	if len(value) < checksumSize {
		return nil, false
	}
	record := value[checksumSize:]
	if binary.BigEndian.Uint64(value[:checksumSize]) != xxhash.Sum64(record) {
		return nil, false
	}
	return record, true
}
