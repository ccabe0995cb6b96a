package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/airbot/internal/dispatch"
)

const (
	writeWait  = 10 * time.Second
	clientSend = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is pushed to every WebSocket client after an accepted dispatch.
type Event struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Gesture string    `json:"gesture"`
	Name    string    `json:"name"`
	Action  string    `json:"action"`
	Error   string    `json:"error,omitempty"`
	Line    string    `json:"line"`
}

// NewDispatchEvent builds the event for an accepted dispatch.
func NewDispatchEvent(res dispatch.Result) Event {
	e := Event{
		Type:    "dispatch",
		Time:    res.At,
		Gesture: res.Gesture.Slug(),
		Name:    res.Gesture.String(),
		Action:  string(res.Action),
		Line:    dispatch.LogEntry{Time: res.At, Gesture: res.Gesture}.String(),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub broadcasts dispatch events via WebSocket. Each client has its
// own writer goroutine; a client that falls behind loses events.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*client]struct{})}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends res to every client without blocking. It is meant for
// App.OnDispatch.
func (h *EventHub) Publish(res dispatch.Result) {
	msg, err := json.Marshal(NewDispatchEvent(res))
	if err != nil {
		log.Printf("Error encoding event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientSend)}
	if !h.register(c) {
		return
	}
	defer h.unregister(c)

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *EventHub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *EventHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writeLoop is the only writer on the connection.
func (c *client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
