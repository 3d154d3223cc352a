package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/server"
	"github.com/nicktill/tinyweather/pkg/telemetry"
)

func main() {
	log.Println("🚀 Starting TinyWeather Server...")

	cfg := server.LoadConfig()
	log.Printf("⚙️  Configuration: storage = %s, data dir = %s, zone = %s, window = %d readings",
		cfg.Storage, cfg.DataDir, cfg.Timezone, cfg.WindowSize)

	store, err := server.InitializeStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("⚠️  Storage close warning: %v", err)
		}
	}()
	log.Println("✅ Storage initialized successfully")

	metrics := telemetry.New()
	st, err := server.InitializeStation(cfg, store, metrics)
	if err != nil {
		log.Fatalf("❌ Failed to initialize station: %v", err)
	}
	if current, err := st.Interval(context.Background()); err == nil {
		metrics.ObserveInterval(current, false)
		log.Printf("⏱️  Sampling interval: %s min", current)
	}

	handlers := server.InitializeHandlers(st, store, metrics)
	defer handlers.Hub.Close()

	bridge, err := server.InitializeBridge(cfg, st)
	if err != nil {
		log.Fatalf("❌ Failed to start MQTT bridge: %v", err)
	}
	if bridge != nil {
		defer bridge.Close()
		log.Printf("📡 MQTT bridge connected to %s", cfg.MQTTBroker)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewHTTPHandler(handlers, cfg.Port),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Server starting on http://localhost:%s", cfg.Port)
		log.Printf("📊 Dashboard: http://localhost:%s/weather", cfg.Port)
		log.Println("📡 Endpoints:")
		log.Println("   GET|POST /collect        - Sensor reading upload")
		log.Println("   GET  /interval.txt       - Sampling interval for the sensor")
		log.Println("   GET  /v1/readings        - Current window as JSON")
		log.Println("   PUT  /v1/interval        - Change the sampling interval")
		log.Println("   GET  /v1/ws              - Live updates")
		log.Println("   GET  /metrics            - Prometheus endpoint")
		log.Println("✅ Server ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	log.Println("🔄 Gracefully shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	log.Println("👋 TinyWeather server exited cleanly")
}
