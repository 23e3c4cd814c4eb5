// Package notify fans world changes out to WebSocket clients.
//
// Each connected client receives one context_changed event per changed
// aggregate, in the same JSON form the export adapters publish. A client
// may narrow its feed by sending {"aggregates": ["docks", ...]}.
package notify

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// DefaultSendBuffer is the per-client queue length.
const DefaultSendBuffer = 64

// Config configures a Hub.
type Config struct {
	SessionID string
	// SendBuffer is the per-client queue length. A client whose queue is
	// full is disconnected.
	SendBuffer int
	// AllowedOrigins restricts browser origins. Empty allows any origin.
	AllowedOrigins []string
	Logger         *log.Logger
}

// Hub is a world.Observer and an http.Handler that upgrades requests to
// WebSocket subscriptions.
type Hub struct {
	config   Config
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	filter []world.Aggregate

	closeOnce sync.Once
}

// subscribeRequest is the only message a client sends.
type subscribeRequest struct {
	Aggregates []world.Aggregate `json:"aggregates"`
}

// New creates a Hub.
func New(cfg Config) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultSendBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	h := &Hub{
		config:  cfg,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.config.AllowedOrigins, r.Header.Get("Origin"))
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.Debug("websocket client connected", map[string]any{"remote": r.RemoteAddr})

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.closeOnce.Do(func() { close(c.send) })
	}
}

// readLoop handles subscription requests and detects disconnects.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			continue
		}
		c.mu.Lock()
		c.filter = req.Aggregates
		c.mu.Unlock()
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) wants(a world.Aggregate) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filter) == 0 || slices.Contains(c.filter, a)
}

// OnContextChanged queues the change for every interested client. It never
// blocks; clients that cannot keep up are disconnected.
func (h *Hub) OnContextChanged(ch world.Change) error {
	ev := adapter.NewChangeEvent(h.config.SessionID, adapter.ChangeRecord{
		Aggregate: string(ch.Aggregate),
		Version:   ch.Version,
		DataType:  dataTypeName(ch),
		Samples:   ch.Samples,
	})
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		if !c.wants(ch.Aggregate) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("websocket client too slow, disconnecting", map[string]any{
			"remote": c.conn.RemoteAddr().String(),
		})
		h.remove(c)
	}
	return nil
}

// dataTypeName leaves the field empty for changes not caused by a payload.
func dataTypeName(ch world.Change) string {
	if ch.DataType == types.Undefined {
		return ""
	}
	return ch.DataType.String()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
	return nil
}

var _ world.Observer = (*Hub)(nil)
