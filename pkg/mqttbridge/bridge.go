// Package mqttbridge lets sensors talk MQTT instead of HTTP. Readings arrive
// on one topic; the sampling interval is published retained on another so a
// sensor picks it up as soon as it subscribes.
package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/reading"
	"github.com/nicktill/tinyweather/pkg/station"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// Config configures the bridge.
type Config struct {
	// Broker address, e.g. tcp://localhost:1883
	Broker string

	ReadingTopic  string
	IntervalTopic string

	// ClientID defaults to tinyweather- plus a random suffix
	ClientID string

	// Timeout bounds connect, subscribe and publish round trips
	Timeout time.Duration
}

// ReadingMessage is the payload expected on the reading topic.
type ReadingMessage struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Bridge connects a station to an MQTT broker.
type Bridge struct {
	cfg     Config
	station *station.Station
	client  mqtt.Client
	ready   atomic.Bool
}

// New creates a bridge; call Connect to start it.
func New(st *station.Station, cfg Config) *Bridge {
	if cfg.ReadingTopic == "" {
		cfg.ReadingTopic = config.DefaultMQTTReadingTopic
	}
	if cfg.IntervalTopic == "" {
		cfg.IntervalTopic = config.DefaultMQTTIntervalTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "tinyweather-" + uuid.NewString()[:8]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.MQTTConnectTimeout
	}

	b := &Bridge{cfg: cfg, station: st}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})
	b.client = mqtt.NewClient(opts)
	return b
}

// Connect connects to the broker, subscribes to readings and publishes the
// current interval.
func (b *Bridge) Connect(ctx context.Context) error {
	if err := b.wait(b.client.Connect()); err != nil {
		return fmt.Errorf("connect to %s: %w", b.cfg.Broker, err)
	}
	if err := b.subscribe(); err != nil {
		return err
	}
	b.ready.Store(true)
	log.Printf("MQTT bridge connected to %s (readings on %q, interval on %q)",
		b.cfg.Broker, b.cfg.ReadingTopic, b.cfg.IntervalTopic)

	current, err := b.station.Interval(ctx)
	if err != nil {
		return fmt.Errorf("load interval: %w", err)
	}
	return b.PublishInterval(current)
}

// onConnect restores the subscription after an automatic reconnect. The
// first connection subscribes from Connect.
func (b *Bridge) onConnect(_ mqtt.Client) {
	if !b.ready.Load() {
		return
	}
	if err := b.subscribe(); err != nil {
		log.Printf("MQTT resubscribe failed: %v", err)
	}
}

func (b *Bridge) subscribe() error {
	token := b.client.Subscribe(b.cfg.ReadingTopic, config.MQTTQoS, b.handleReading)
	if err := b.wait(token); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.cfg.ReadingTopic, err)
	}
	return nil
}

// handleReading runs on paho's callback goroutine and records the reading
// before returning.
func (b *Bridge) handleReading(_ mqtt.Client, msg mqtt.Message) {
	temperature, humidity, err := parseReading(msg.Payload())
	if err != nil {
		log.Printf("Dropping MQTT reading on %s: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.IngestTimeout)
	defer cancel()

	if _, err := b.station.Record(ctx, temperature, humidity); err != nil {
		log.Printf("Failed to record MQTT reading: %v", err)
	}
}

func parseReading(payload []byte) (float64, float64, error) {
	var msg ReadingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return 0, 0, fmt.Errorf("invalid payload: %w", err)
	}
	if msg.Temperature == nil || msg.Humidity == nil {
		return 0, 0, errors.New("payload needs temperature and humidity")
	}
	return *msg.Temperature, *msg.Humidity, nil
}

// PublishInterval publishes i, retained, in the same plain form as interval.txt.
func (b *Bridge) PublishInterval(i interval.Interval) error {
	token := b.client.Publish(b.cfg.IntervalTopic, config.MQTTQoS, true, i.String())
	if err := b.wait(token); err != nil {
		return fmt.Errorf("publish interval: %w", err)
	}
	return nil
}

// ReadingRecorded implements station.Observer. Readings are not echoed.
func (b *Bridge) ReadingRecorded(reading.Reading) {}

// IntervalChanged implements station.Observer.
func (b *Bridge) IntervalChanged(i interval.Interval) {
	if err := b.PublishInterval(i); err != nil {
		log.Printf("Failed to publish interval change: %v", err)
	}
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.ready.Store(false)
	b.client.Disconnect(config.MQTTDisconnectQuiesce)
}

func (b *Bridge) wait(token mqtt.Token) error {
	if !token.WaitTimeout(b.cfg.Timeout) {
		return ErrTimeout
	}
	return token.Error()
}
