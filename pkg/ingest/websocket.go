package ingest

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nicktill/tinyweather/pkg/config"
	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/reading"
)

// Message types sent to live clients
const (
	MessageReading  = "reading"
	MessageInterval = "interval"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Same-origin browsers, or non-browser clients that send no Origin
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
}

// Update is one live message.
type Update struct {
	Type     string             `json:"type"`
	Reading  *reading.Reading   `json:"reading,omitempty"`
	Interval *interval.Interval `json:"interval,omitempty"`
}

// Hub fans station changes out to websocket clients. Broadcasts are written
// from the notifying goroutine while holding mu, so each connection has at
// most one data writer at a time.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a new websocket hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ReadingRecorded implements station.Observer.
func (h *Hub) ReadingRecorded(r reading.Reading) {
	if err := h.Broadcast(Update{Type: MessageReading, Reading: &r}); err != nil {
		log.Printf("Failed to broadcast reading: %v", err)
	}
}

// IntervalChanged implements station.Observer.
func (h *Hub) IntervalChanged(i interval.Interval) {
	if err := h.Broadcast(Update{Type: MessageInterval, Interval: &i}); err != nil {
		log.Printf("Failed to broadcast interval: %v", err)
	}
}

// Broadcast sends data as JSON to every client. Clients that fail the write
// are dropped.
func (h *Hub) Broadcast(data interface{}) error {
	message, err := json.Marshal(data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HasClients returns true if there are any connected WebSocket clients
func (h *Hub) HasClients() bool {
	return h.ClientCount() > 0
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("WebSocket client connected (total: %d)", count)
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("WebSocket client disconnected (total: %d)", count)
}

// HandleWebSocket handles WebSocket upgrade requests on /v1/ws.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	h.register(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		h.unregister(conn)
	}()

	// Pings go out as control frames, which may be written concurrently
	// with the hub's broadcasts
	go func() {
		ticker := time.NewTicker(config.WSPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WSWriteDeadline)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	// Clients never send data; reading drives control frames and detects close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}
