package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
	"github.com/ternarybob/seeker/internal/services/events"
)

func newWSFixture(t *testing.T) (*WebSocketHandler, interfaces.StateTracker, *httptest.Server) {
	t.Helper()
	tracker := newTestTracker(t)
	h := NewWebSocketHandler(tracker, events.NewService(arbor.NewLogger()), 20*time.Millisecond, arbor.NewLogger())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/ws/")
		h.HandleWebSocket(w, r, id)
	}))
	t.Cleanup(server.Close)

	return h, tracker, server
}

func dial(t *testing.T, server *httptest.Server, searchID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + searchID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_UnknownSearchClosesWithError(t *testing.T) {
	_, _, server := newWSFixture(t)
	conn := dial(t, server, "search_missing")

	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Search not found", msg.Message)

	// The server ends the stream after the error message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_StreamsSnapshotsUntilTerminal(t *testing.T) {
	_, tracker, server := newWSFixture(t)
	ctx := context.Background()

	require.NoError(t, tracker.InitSearch(ctx, "search_ws"))
	require.NoError(t, tracker.SetTotal(ctx, "search_ws", 2))

	conn := dial(t, server, "search_ws")

	first := readMessage(t, conn)
	assert.Equal(t, "state_update", first.Type)
	snap := first.Data.(map[string]interface{})
	assert.Equal(t, string(models.StatusSearching), snap["current_status"])
	assert.Equal(t, float64(2), snap["total_urls"])

	require.NoError(t, tracker.IncProcessed(ctx, "search_ws"))
	require.NoError(t, tracker.IncProcessed(ctx, "search_ws"))
	require.NoError(t, tracker.Complete(ctx, "search_ws"))

	// The terminal snapshot is still delivered, then the stream closes
	var sawCompleted bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type != "state_update" {
			continue
		}
		snap := msg.Data.(map[string]interface{})
		if snap["current_status"] == string(models.StatusCompleted) {
			sawCompleted = true
			assert.Equal(t, 100.0, snap["progress"])
			break
		}
	}
	assert.True(t, sawCompleted, "terminal snapshot never delivered")
}

func TestWebSocket_BroadcastTargetsMatchingSearchID(t *testing.T) {
	h, tracker, server := newWSFixture(t)
	ctx := context.Background()

	require.NoError(t, tracker.InitSearch(ctx, "search_a"))
	require.NoError(t, tracker.InitSearch(ctx, "search_b"))

	connA := dial(t, server, "search_a")
	connB := dial(t, server, "search_b")

	// Both connections deliver their initial snapshot first
	assert.Equal(t, "state_update", readMessage(t, connA).Type)
	assert.Equal(t, "state_update", readMessage(t, connB).Type)

	h.broadcast("search_a", WSMessage{
		Type:      "search_completed",
		Data:      models.SearchNotification{SearchID: "search_a"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "broadcast never reached client")
		msg := readMessage(t, connA)
		if msg.Type == "search_completed" {
			break
		}
		// Interleaved periodic snapshots are expected
		require.Equal(t, "state_update", msg.Type)
	}
}
