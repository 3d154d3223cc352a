package config

import "time"

// Server defaults
const (
	DefaultPort       = "8080"
	DefaultDataDir    = "./data/tinyweather"
	DefaultStorage    = "file"
	DefaultTimezone   = "Europe/Helsinki"
	DefaultWindowSize = 16

	// Matches the sensor firmware's fallback interval
	DefaultIntervalMinutes = 10

	DefaultBadgerMemoryMB = 24
)

// HTTP server timeouts
const (
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second
	ShutdownTimeout    = 15 * time.Second
)

// Request timeouts
const (
	IngestTimeout   = 5 * time.Second
	RenderTimeout   = 10 * time.Second
	IntervalTimeout = 5 * time.Second
)

// Dashboard layout
const (
	DashboardRefresh = 30 * time.Second
	ChartWidth       = 700
	ChartHeight      = 300
	ChartFontSize    = 12
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
)

// MQTT bridge
const (
	DefaultMQTTReadingTopic  = "weather/reading"
	DefaultMQTTIntervalTopic = "weather/interval"
	MQTTQoS                  = 1
	MQTTConnectTimeout       = 10 * time.Second
	MQTTDisconnectQuiesce    = 250 // milliseconds
)

// Storage monitoring
const (
	// The log is never rotated; warn once it passes this size
	LogSizeWarnBytes = 256 * 1024 * 1024
	StorageCacheTTL  = 10 * time.Second
)
