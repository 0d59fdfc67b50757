// WebSocket push channel for frontend event updates. The kiosk UI
// subscribes to sync and export events so it can show progress without
// polling.
package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ctukiosk/backend/internal/logging"
	"github.com/ctukiosk/backend/internal/sync"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The frontend runs on the same machine.
		return strings.HasPrefix(r.Host, "localhost") || strings.HasPrefix(r.Host, "127.0.0.1")
	},
}

// Event types pushed to the frontend.
const (
	EventSyncStarted     = "sync.started"
	EventSyncProgress    = "sync.progress"
	EventSyncCompleted   = "sync.completed"
	EventSyncFailed      = "sync.failed"
	EventExportCompleted = "export.completed"
	EventExportFailed    = "export.failed"
)

// WSEnvelope wraps all WebSocket messages.
type WSEnvelope struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// WSClient is one connected frontend.
type WSClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *WSHub
}

// WSHub tracks connected clients and fans events out to them.
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
}

// NewWSHub creates the hub and starts its dispatch loop.
func NewWSHub() *WSHub {
	hub := &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
	go hub.run()
	return hub
}

func (h *WSHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logging.Debug("websocket client connected", logging.Fields{"total": len(h.clients)})

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			logging.Debug("websocket client disconnected", logging.Fields{"total": len(h.clients)})

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop the connection.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast fans an event out to every connected client.
func (h *WSHub) Broadcast(eventType string, data map[string]interface{}) {
	envelope := WSEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		logging.Error("failed to encode websocket event", err)
		return
	}
	h.broadcast <- payload
}

// SyncStarted implements handlers.Notifier.
func (h *WSHub) SyncStarted(total int) {
	h.Broadcast(EventSyncStarted, map[string]interface{}{"total": total})
}

// SyncProgress implements handlers.Notifier.
func (h *WSHub) SyncProgress(p sync.Progress) {
	h.Broadcast(EventSyncProgress, map[string]interface{}{
		"current":   p.Current,
		"total":     p.Total,
		"reference": p.Reference,
	})
}

// SyncCompleted implements handlers.Notifier.
func (h *WSHub) SyncCompleted(r *sync.Result) {
	h.Broadcast(EventSyncCompleted, map[string]interface{}{
		"synced": r.Synced,
		"failed": r.Failed,
		"total":  r.Total,
	})
}

// SyncFailed implements handlers.Notifier.
func (h *WSHub) SyncFailed(err error) {
	h.Broadcast(EventSyncFailed, map[string]interface{}{"error": err.Error()})
}

// ExportCompleted implements handlers.Notifier.
func (h *WSHub) ExportCompleted(format string, sizeBytes int) {
	h.Broadcast(EventExportCompleted, map[string]interface{}{
		"format":     format,
		"size_bytes": sizeBytes,
	})
}

// ExportFailed implements handlers.Notifier.
func (h *WSHub) ExportFailed(err error) {
	h.Broadcast(EventExportFailed, map[string]interface{}{"error": err.Error()})
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// The frontend only listens; inbound messages just reset the
	// read deadline.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug("websocket read error", logging.Fields{"error": err.Error()})
			}
			return
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades /ws connections and attaches them to the
// hub.
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("failed to upgrade websocket", err)
			return
		}

		client := &WSClient{
			conn: conn,
			send: make(chan []byte, 256),
			hub:  hub,
		}
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
