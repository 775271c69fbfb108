package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// VerdictEvent is the websocket payload pushed for each completed rumor check.
type VerdictEvent struct {
	Type      string         `json:"type"`
	Check     *RumorCheckDTO `json:"check,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// VerdictNotifier fans verdicts out to websocket subscribers. Subscribers
// only see verdicts produced after they connect; history is served by
// GET /api/rumor-checks.
type VerdictNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewVerdictNotifier constructs a notifier instance.
func NewVerdictNotifier() *VerdictNotifier {
	return &VerdictNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection.
func (n *VerdictNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	n.mu.Unlock()
	return client
}

// Unregister removes the client and closes its socket. Safe to call twice.
func (n *VerdictNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the event to every subscriber. A slow socket holds up only
// its own write; subscribers whose write fails are dropped.
func (n *VerdictNotifier) Broadcast(event VerdictEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	clients := make([]*wsClient, 0, len(n.clients))
	for client := range n.clients {
		clients = append(clients, client)
	}
	n.mu.Unlock()

	for _, client := range clients {
		if err := client.writeJSON(event); err != nil {
			n.Unregister(client)
		}
	}
}

// Subscribers reports the number of connected clients.
func (n *VerdictNotifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
