package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/seeker/internal/interfaces"
	"github.com/ternarybob/seeker/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every message sent to a client.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// client is one websocket connection watching one search id. Writes on the
// connection are serialized with a per-connection mutex.
type client struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	searchID string
}

func (c *client) send(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocketHandler streams search progress to clients. Each connection is
// pinned to one search id and receives a state_update snapshot on a fixed
// interval until the search reaches a terminal state. Event bus
// notifications for the same id are forwarded as they happen, with
// per-URL progress events throttled.
type WebSocketHandler struct {
	tracker           interfaces.StateTracker
	logger            arbor.ILogger
	interval          time.Duration
	progressThrottler *rate.Limiter

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewWebSocketHandler creates the handler and subscribes it to search
// lifecycle events.
func NewWebSocketHandler(tracker interfaces.StateTracker, eventService interfaces.EventService, interval time.Duration, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		tracker:           tracker,
		logger:            logger,
		interval:          interval,
		progressThrottler: rate.NewLimiter(rate.Every(interval), 1),
		clients:           make(map[*client]bool),
	}

	if eventService != nil {
		h.subscribeToSearchEvents(eventService)
	}

	return h
}

// HandleWebSocket upgrades the connection and streams snapshots for the
// search id extracted from the path (/ws/{id}).
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request, searchID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	c := &client{conn: conn, searchID: searchID}

	h.mu.Lock()
	h.clients[c] = true
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("search_id", searchID).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().
			Str("search_id", searchID).
			Int("clients", remaining).
			Msg("WebSocket client disconnected")
	}()

	// Drain client frames so closes are noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if !h.streamSnapshot(c) {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !h.streamSnapshot(c) {
				return
			}
		}
	}
}

// streamSnapshot sends the current state to the client. Returns false when
// the stream should end: unknown id, terminal state, or a dead connection.
// The terminal snapshot is still delivered before the stream closes.
func (h *WebSocketHandler) streamSnapshot(c *client) bool {
	snapshot, ok := h.tracker.Get(c.searchID)
	if !ok {
		c.send(WSMessage{
			Type:      "error",
			Message:   "Search not found",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return false
	}

	err := c.send(WSMessage{
		Type:      "state_update",
		Data:      snapshot,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false
	}

	return !snapshot.Status.IsTerminal()
}

// subscribeToSearchEvents forwards lifecycle notifications to the clients
// watching the affected search id.
func (h *WebSocketHandler) subscribeToSearchEvents(eventService interfaces.EventService) {
	forward := func(msgType string) interfaces.EventHandler {
		return func(ctx context.Context, event interfaces.Event) error {
			n, ok := event.Payload.(models.SearchNotification)
			if !ok {
				return nil
			}
			h.broadcast(n.SearchID, WSMessage{
				Type:      msgType,
				Data:      n,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return nil
		}
	}

	eventService.Subscribe(interfaces.EventSearchStarted, forward("search_started"))
	eventService.Subscribe(interfaces.EventSearchCompleted, forward("search_completed"))
	eventService.Subscribe(interfaces.EventSearchError, forward("search_error"))

	eventService.Subscribe(interfaces.EventSearchProgress, func(ctx context.Context, event interfaces.Event) error {
		// Progress fires once per URL; drop bursts beyond the stream interval
		if !h.progressThrottler.Allow() {
			return nil
		}
		n, ok := event.Payload.(models.ProgressNotification)
		if !ok {
			return nil
		}
		h.broadcast(n.SearchID, WSMessage{
			Type:      "search_progress",
			Data:      n,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return nil
	})
}

// broadcast sends a message to every client watching the search id.
func (h *WebSocketHandler) broadcast(searchID string, msg WSMessage) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.searchID == searchID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(msg); err != nil {
			h.logger.Warn().Err(err).Str("search_id", searchID).Msg("Failed to send WebSocket message")
		}
	}
}
