package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	// Zone data for hosts without a system tz database
	_ "time/tzdata"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/dashboard"
	"github.com/nicktill/tinyweather/pkg/ingest"
	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/mqttbridge"
	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/server/monitor"
	"github.com/nicktill/tinyweather/pkg/station"
	"github.com/nicktill/tinyweather/pkg/storage"
	"github.com/nicktill/tinyweather/pkg/storage/badger"
	"github.com/nicktill/tinyweather/pkg/storage/file"
	"github.com/nicktill/tinyweather/pkg/storage/memory"
	"github.com/nicktill/tinyweather/pkg/telemetry"
)

// Storage backend names accepted by WEATHER_STORAGE
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds server configuration.
type Config struct {
	Port            string
	DataDir         string
	Storage         string
	Timezone        string
	WindowSize      int
	DefaultInterval interval.Interval
	BadgerMemoryMB  int64

	// MQTTBroker enables the MQTT bridge when set
	MQTTBroker        string
	MQTTReadingTopic  string
	MQTTIntervalTopic string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() Config {
	defaultInterval := interval.Interval(getEnvInt64("WEATHER_DEFAULT_INTERVAL", config.DefaultIntervalMinutes))
	if !defaultInterval.Valid() {
		log.Printf("Invalid WEATHER_DEFAULT_INTERVAL %d, using %d", defaultInterval, interval.Default)
		defaultInterval = interval.Default
	}

	return Config{
		Port:              getPort(),
		DataDir:           getEnv("WEATHER_DATA_DIR", config.DefaultDataDir),
		Storage:           strings.ToLower(getEnv("WEATHER_STORAGE", config.DefaultStorage)),
		Timezone:          getEnv("WEATHER_TIMEZONE", config.DefaultTimezone),
		WindowSize:        int(getEnvInt64("WEATHER_WINDOW_SIZE", config.DefaultWindowSize)),
		DefaultInterval:   defaultInterval,
		BadgerMemoryMB:    getEnvInt64("WEATHER_BADGER_MEMORY_MB", config.DefaultBadgerMemoryMB),
		MQTTBroker:        os.Getenv("WEATHER_MQTT_BROKER"),
		MQTTReadingTopic:  getEnv("WEATHER_MQTT_READING_TOPIC", config.DefaultMQTTReadingTopic),
		MQTTIntervalTopic: getEnv("WEATHER_MQTT_INTERVAL_TOPIC", config.DefaultMQTTIntervalTopic),
	}
}

// Storage is the opened backend: the reading log and the interval slot.
type Storage struct {
	Log   storage.Log
	Slot  storage.Slot
	Sizer storage.Sizer

	// DataDir is empty for the in-memory backend
	DataDir string

	badger *badger.Storage
}

// InitializeStorage opens the backend named by cfg.Storage.
func InitializeStorage(cfg Config) (*Storage, error) {
	switch cfg.Storage {
	case BackendFile, "":
		log.Printf("Opening file storage in %s", cfg.DataDir)
		l, slot, err := file.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return &Storage{Log: l, Slot: slot, Sizer: l, DataDir: cfg.DataDir}, nil

	case BackendBadger:
		log.Printf("Opening BadgerDB storage in %s", cfg.DataDir)
		store, err := badger.New(badger.Config{
			Path:        cfg.DataDir,
			MaxMemoryMB: cfg.BadgerMemoryMB,
		})
		if err != nil {
			return nil, err
		}
		return &Storage{Log: store, Slot: store.IntervalSlot(), Sizer: store, DataDir: cfg.DataDir, badger: store}, nil

	case BackendMemory:
		log.Println("Using in-memory storage, readings are lost on exit")
		l := memory.New()
		return &Storage{Log: l, Slot: memory.NewSlot(), Sizer: l}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, badger or memory)", cfg.Storage)
	}
}

// Close runs shutdown maintenance and closes the backend.
func (s *Storage) Close() error {
	var errs []error
	if s.badger != nil {
		if err := CompactValueLog(s.badger); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Log.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// InitializeStation builds the station over the opened storage.
func InitializeStation(cfg Config, store *Storage, metrics *telemetry.Metrics) (*station.Station, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return station.New(station.Config{
		Log:        store.Log,
		Intervals:  interval.NewStore(store.Slot, cfg.DefaultInterval),
		Codec:      reading.NewCodec(loc),
		WindowSize: cfg.WindowSize,
		Metrics:    metrics,
	}), nil
}

// Handlers groups the request handlers served by the router.
type Handlers struct {
	Ingest    *ingest.Handler
	Dashboard *dashboard.Handler
	Hub       *ingest.Hub
	Storage   *monitor.StorageMonitor
	Metrics   *telemetry.Metrics
}

// InitializeHandlers creates and configures all request handlers.
func InitializeHandlers(st *station.Station, store *Storage, metrics *telemetry.Metrics) *Handlers {
	hub := ingest.NewHub()
	st.Subscribe(hub)
	log.Println("WebSocket hub subscribed to station updates")

	return &Handlers{
		Ingest:    ingest.NewHandler(st),
		Dashboard: dashboard.NewHandler(st, dashboard.Options{Place: placeName(st)}),
		Hub:       hub,
		Storage:   monitor.NewStorageMonitor(store.Sizer, store.DataDir, config.LogSizeWarnBytes),
		Metrics:   metrics,
	}
}

// InitializeBridge connects the MQTT bridge when a broker is configured.
// It returns nil when MQTT is disabled.
func InitializeBridge(cfg Config, st *station.Station) (*mqttbridge.Bridge, error) {
	if cfg.MQTTBroker == "" {
		return nil, nil
	}

	bridge := mqttbridge.New(st, mqttbridge.Config{
		Broker:        cfg.MQTTBroker,
		ReadingTopic:  cfg.MQTTReadingTopic,
		IntervalTopic: cfg.MQTTIntervalTopic,
	})
	ctx, cancel := context.WithTimeout(context.Background(), config.MQTTConnectTimeout)
	defer cancel()
	if err := bridge.Connect(ctx); err != nil {
		return nil, err
	}
	st.Subscribe(bridge)
	return bridge, nil
}

// placeName takes the city from the zone name, e.g. Europe/Helsinki.
func placeName(st *station.Station) string {
	name := st.Codec().Location().String()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

// getEnv gets a string from environment variable or returns default.
func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvInt64 gets an int64 from environment variable or returns default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Invalid value for %s: %q, using default %d", key, val, defaultValue)
	}
	return defaultValue
}

// getPort gets the server port from PORT environment variable or returns default.
func getPort() string {
	return getEnv("PORT", config.DefaultPort)
}
