package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinyweather/pkg/interval"
	"github.com/nicktill/tinyweather/pkg/storage/memory"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) Update {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var u Update
	require.NoError(t, json.Unmarshal(msg, &u))
	return u
}

func TestHub_BroadcastsStationChanges(t *testing.T) {
	hub := NewHub()
	st := newTestStation(memory.New())
	st.Subscribe(hub)

	conn := dialHub(t, hub)
	require.Eventually(t, hub.HasClients, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	_, err := st.Record(ctx, 22, 48)
	require.NoError(t, err)

	u := readUpdate(t, conn)
	require.Equal(t, MessageReading, u.Type)
	require.NotNil(t, u.Reading)
	require.Equal(t, 22.0, u.Reading.Temperature)

	require.NoError(t, st.SetInterval(ctx, interval.OneMinute))

	u = readUpdate(t, conn)
	require.Equal(t, MessageInterval, u.Type)
	require.NotNil(t, u.Interval)
	require.Equal(t, interval.OneMinute, *u.Interval)
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	require.Eventually(t, hub.HasClients, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.Broadcast(Update{Type: MessageReading}))
	require.False(t, hub.HasClients())
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	require.Eventually(t, hub.HasClients, 2*time.Second, 10*time.Millisecond)

	hub.Close()

	require.Zero(t, hub.ClientCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
