package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/sensor"
)

func main() {
	log.Println("🌡️  Starting TinyWeather sensor simulator...")

	// SENSOR_SERVER: TinyWeather server base URL
	// SENSOR_MINUTE: wall time per interval minute, shorten for demos
	// WEATHER_MQTT_BROKER: talk MQTT instead of HTTP when set
	serverURL := getEnv("SENSOR_SERVER", "http://localhost:"+config.DefaultPort)
	minute := getEnvDuration("SENSOR_MINUTE", time.Minute)

	var transport sensor.Transport
	if broker := os.Getenv("WEATHER_MQTT_BROKER"); broker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(broker).
			SetClientID("tinyweather-sensor-" + uuid.NewString()[:8])
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("❌ Failed to connect to MQTT broker: %v", token.Error())
		}
		defer client.Disconnect(config.MQTTDisconnectQuiesce)

		transport = sensor.NewMQTT(client,
			getEnv("WEATHER_MQTT_READING_TOPIC", config.DefaultMQTTReadingTopic),
			getEnv("WEATHER_MQTT_INTERVAL_TOPIC", config.DefaultMQTTIntervalTopic))
		log.Printf("📡 Publishing over MQTT via %s", broker)
	} else {
		transport = sensor.NewHTTP(serverURL)
		log.Printf("🌐 Posting to %s", serverURL)
	}

	source := sensor.NewSimulated(time.Now().UnixNano())
	source.FailureRate = getEnvFloat("SENSOR_FAILURE_RATE", 0.05)

	s := sensor.New(sensor.Config{
		Transport: transport,
		Source:    source,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutdown signal received...")
		cancel()
	}()

	if err := s.Run(ctx, minute); err != nil {
		log.Fatalf("❌ Sensor stopped: %v", err)
	}
	log.Println("👋 Sensor simulator exited cleanly")
}

func getEnv(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("⚠️  Invalid value for %s: %q, using default %v", key, val, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid value for %s: %q, using default %g", key, val, defaultValue)
	}
	return defaultValue
}
