package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/nicktill/tinyweather/pkg/httpx"
	"github.com/nicktill/tinyweather/pkg/server/monitor"
)

var startTime = time.Now()

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	LiveClients int    `json:"live_clients"`
}

// handleHealth returns service health status.
func handleHealth(h *Handlers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, HealthResponse{
			Status:      "healthy",
			Version:     "1.0.0",
			Uptime:      time.Since(startTime).String(),
			LiveClients: h.Hub.ClientCount(),
		})
	}
}

// handleStorageUsage returns current storage usage.
func handleStorageUsage(sm *monitor.StorageMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usage, err := sm.GetUsage()
		if err != nil {
			httpx.RespondFailure(w, err)
			return
		}
		httpx.RespondJSON(w, http.StatusOK, usage)
	}
}

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(router *mux.Router, h *Handlers, port string) {
	router.Use(corsMiddleware(port))
	router.Use(h.Metrics.Middleware)

	// Dashboard
	router.Handle("/", h.Dashboard).Methods("GET", "POST")
	router.Handle("/weather", h.Dashboard).Methods("GET", "POST")

	// Sensor endpoints
	router.HandleFunc("/collect", h.Ingest.HandleIngest).Methods("GET", "POST")
	router.HandleFunc("/interval.txt", h.Ingest.HandleIntervalText).Methods("GET")

	// API routes
	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/ingest", h.Ingest.HandleIngest).Methods("POST")
	api.HandleFunc("/readings", h.Ingest.HandleReadings).Methods("GET")
	api.HandleFunc("/interval", h.Ingest.HandleInterval).Methods("GET", "PUT", "POST")
	api.HandleFunc("/ws", h.Hub.HandleWebSocket).Methods("GET")
	api.HandleFunc("/storage", handleStorageUsage(h.Storage)).Methods("GET")
	api.HandleFunc("/health", handleHealth(h)).Methods("GET")

	// Prometheus scrape endpoint
	router.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
}

// NewHTTPHandler builds the router with access logging and panic recovery.
func NewHTTPHandler(h *Handlers, port string) http.Handler {
	router := mux.NewRouter()
	SetupRoutes(router, h, port)

	logged := handlers.LoggingHandler(os.Stdout, router)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(logged)
}

// corsMiddleware creates CORS middleware that restricts to localhost origins only.
func corsMiddleware(port string) func(http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:" + port: true,
		"http://127.0.0.1:" + port: true,
		"http://localhost:3000":    true,
		"http://127.0.0.1:3000":    true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
				w.Header().Set("Access-Control-Expose-Headers", "ETag")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
