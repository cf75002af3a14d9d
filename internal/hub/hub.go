package hub

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"insider-watch/internal/snapshot"
	"insider-watch/observability"
)

const (
	sendBuffer   = 16
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

// Message is the payload pushed to every client
type Message struct {
	Type string `json:"type"`
	*snapshot.Snapshot
}

func snapshotMessage(s *snapshot.Snapshot) Message {
	return Message{Type: "snapshot", Snapshot: s}
}

type client struct {
	conn *websocket.Conn
	out  chan Message
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans out published snapshots to connected websocket clients
type Hub struct {
	store    *snapshot.Store
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a hub and subscribes it to the store
func New(store *snapshot.Store) *Hub {
	h := &Hub{
		store: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	store.Subscribe(h.Broadcast)
	return h
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues s for every client. A client whose buffer is full misses
// this snapshot rather than stalling the publisher.
func (h *Hub) Broadcast(s *snapshot.Snapshot) {
	metrics := observability.GetMetrics()
	msg := snapshotMessage(s)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- msg:
			metrics.RecordWebsocketMessage("sent")
		default:
			metrics.RecordWebsocketMessage("dropped")
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.GetMetrics().SetWebsocketClients(n)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	observability.GetMetrics().SetWebsocketClients(n)
}

// ServeHTTP upgrades the connection and streams snapshots until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, out: make(chan Message, sendBuffer), done: make(chan struct{})}
	c.out <- snapshotMessage(h.store.Load())
	h.add(c)
	defer h.remove(c)

	go h.writeLoop(c)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				observability.Debug("websocket write failed", "error", err)
				c.conn.Close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
