package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/storage"
	"github.com/nicktill/tinyweather/pkg/window"
	"github.com/stretchr/testify/require"
)

func TestLog_ReadAllMissingFile(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), LogFileName))

	data, err := log.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, data)

	size, err := log.SizeBytes()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestLog_AppendAndReadAll(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), LogFileName))
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, []byte("<p>one</p>")))
	require.NoError(t, log.Append(ctx, []byte("<p>two</p>")))

	data, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, "<p>one</p><p>two</p>", string(data))

	size, err := log.SizeBytes()
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), size)
}

func TestLog_AppendToMissingDirectory(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), "missing", LogFileName))

	err := log.Append(context.Background(), []byte("<p>x</p>"))
	require.Error(t, err)
	require.True(t, errors.Is(err, storage.ErrIO))
}

func TestLog_ReadAllUnreadable(t *testing.T) {
	// A directory in place of the log file cannot be read as one
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)
	require.NoError(t, os.Mkdir(path, 0755))

	_, err := NewLog(path).ReadAll(context.Background())
	require.True(t, errors.Is(err, storage.ErrIO))
}

func TestLog_ConcurrentAppendAndRead(t *testing.T) {
	log := NewLog(filepath.Join(t.TempDir(), LogFileName))
	codec := reading.NewCodec(time.UTC)
	extractor := window.NewExtractor(codec)
	ctx := context.Background()

	const total = 200
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			r := reading.New(base.Add(time.Duration(i)*time.Minute), float64(i%50)-20, float64(i%100))
			if err := log.Append(ctx, codec.Encode(r)); err != nil {
				t.Errorf("Append %d failed: %v", i, err)
				return
			}
		}
	}()

	// Reads racing the writer must only ever see whole, ordered records
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		data, err := log.ReadAll(ctx)
		require.NoError(t, err)

		w := extractor.Extract(data, window.DefaultSize)
		require.Zero(t, w.Skipped, "completed records must never decode as malformed")
		for i := 1; i < len(w.Readings); i++ {
			require.True(t, w.Readings[i].Timestamp.After(w.Readings[i-1].Timestamp))
		}

		select {
		case <-done:
			data, err := log.ReadAll(ctx)
			require.NoError(t, err)
			w := extractor.Extract(data, window.DefaultSize)
			require.Len(t, w.Readings, window.DefaultSize)
			require.True(t, w.Latest.Timestamp.Equal(base.Add((total-1)*time.Minute)))
			return
		default:
		}
	}
}

func TestSlot_LoadUnset(t *testing.T) {
	slot := NewSlot(filepath.Join(t.TempDir(), IntervalFileName))

	value, err := slot.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestSlot_StoreOverwrites(t *testing.T) {
	dir := t.TempDir()
	slot := NewSlot(filepath.Join(dir, IntervalFileName))
	ctx := context.Background()

	require.NoError(t, slot.Store(ctx, []byte("1")))
	require.NoError(t, slot.Store(ctx, []byte("60")))

	value, err := slot.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "60", string(value))

	// Raw file holds only the latest value, readable by the web server
	raw, err := os.ReadFile(slot.Path())
	require.NoError(t, err)
	require.Equal(t, "60", string(raw))

	info, err := os.Stat(slot.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0644), info.Mode().Perm())

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestOpen_CreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "weather")

	log, slot, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, LogFileName), log.Path())
	require.Equal(t, filepath.Join(dir, IntervalFileName), slot.Path())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
