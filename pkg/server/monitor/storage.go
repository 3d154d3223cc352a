package monitor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/storage"
)

// Usage is a snapshot of storage consumption.
type Usage struct {
	// LogBytes is what the backend reports for the reading log
	LogBytes int64 `json:"log_bytes"`

	// DiskBytes is allocated space under the data directory, zero without one
	DiskBytes int64 `json:"disk_bytes"`

	WarnBytes int64 `json:"warn_bytes"`
	OverWarn  bool  `json:"over_warn"`
}

// StorageMonitor tracks the growth of the never-rotated log. Results are
// cached to avoid walking the data directory on every request.
type StorageMonitor struct {
	sizer         storage.Sizer
	dataDir       string
	warnBytes     int64
	cacheDuration time.Duration

	mu        sync.Mutex
	cached    Usage
	lastCheck time.Time
	warned    bool
}

// NewStorageMonitor creates a new storage monitor. sizer may be nil and
// dataDir may be empty for the in-memory backend.
func NewStorageMonitor(sizer storage.Sizer, dataDir string, warnBytes int64) *StorageMonitor {
	if warnBytes <= 0 {
		warnBytes = config.LogSizeWarnBytes
	}
	return &StorageMonitor{
		sizer:         sizer,
		dataDir:       dataDir,
		warnBytes:     warnBytes,
		cacheDuration: config.StorageCacheTTL,
	}
}

// GetUsage returns current usage, refreshed at most once per cache period.
func (sm *StorageMonitor) GetUsage() (Usage, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.lastCheck.IsZero() && time.Since(sm.lastCheck) < sm.cacheDuration {
		return sm.cached, nil
	}

	usage := Usage{WarnBytes: sm.warnBytes}
	if sm.sizer != nil {
		size, err := sm.sizer.SizeBytes()
		if err != nil {
			return Usage{}, fmt.Errorf("log size: %w", err)
		}
		usage.LogBytes = size
	}
	if sm.dataDir != "" {
		size, err := calculateDirSize(sm.dataDir)
		if err != nil {
			return Usage{}, fmt.Errorf("%w: data dir size: %w", storage.ErrIO, err)
		}
		usage.DiskBytes = size
	}
	usage.OverWarn = usage.LogBytes >= sm.warnBytes

	if usage.OverWarn && !sm.warned {
		log.Printf("Reading log is %.1f MB, past the %.1f MB warning size; it is never rotated",
			float64(usage.LogBytes)/(1024*1024), float64(sm.warnBytes)/(1024*1024))
		sm.warned = true
	}

	sm.cached = usage
	sm.lastCheck = time.Now()
	return usage, nil
}

// GetLimit returns the warning threshold in bytes.
func (sm *StorageMonitor) GetLimit() int64 {
	return sm.warnBytes
}

// calculateDirSize sums allocated disk space, not logical size, so badger's
// sparse value logs are counted correctly.
func calculateDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			actualSize, err := getActualFileSize(filePath, info)
			if err != nil {
				size += info.Size()
			} else {
				size += actualSize
			}
		}
		return nil
	})
	return size, err
}
