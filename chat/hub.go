// Package chat delivers chat messages in real time.
//
// A Hub fans messages out to the websocket connections of this process. A Bus
// carries messages between the processes sharing the same store.
package chat

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/metrics"
	"github.com/gorilla/websocket"
)

// everyone is the room of connections following every conversation.
const everyone = ""

// Frame is the JSON payload pushed to websocket clients.
type Frame struct {
	Type    string           `json:"type"` // "message" or "read"
	Message *tracker.Message `json:"message,omitempty"`
	// InvestorID and Reader are set on "read" frames.
	InvestorID string       `json:"investorId,omitempty"`
	Reader     tracker.Role `json:"reader,omitempty"`
}

// Hub tracks the websocket connections by conversation.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]*Connection // investorID -> connID -> conn
	metrics *metrics.Metrics
}

// NewHub constructs an empty Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{rooms: make(map[string]map[string]*Connection), metrics: m}
}

// Attach registers and starts the connection.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	room := h.rooms[conn.InvestorID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[conn.InvestorID] = room
	}
	room[conn.ID] = conn
	h.mu.Unlock()

	h.metrics.Connected(1)
	conn.Start()
}

// Detach removes a connection if it is still tracked.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[conn.InvestorID]
	if _, ok := room[conn.ID]; !ok {
		return
	}
	delete(room, conn.ID)
	if len(room) == 0 {
		delete(h.rooms, conn.InvestorID)
	}
	h.metrics.Connected(-1)
}

// Len returns the number of attached connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}

// Broadcast sends payload to the connections following investorID and to
// those following every conversation. It returns the number of deliveries.
func (h *Hub) Broadcast(investorID string, payload []byte) int {
	h.mu.RLock()
	var targets []*Connection
	for _, room := range []string{investorID, everyone} {
		for _, conn := range h.rooms[room] {
			targets = append(targets, conn)
		}
		if investorID == everyone {
			break
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Notify broadcasts msg as a "message" frame.
func (h *Hub) Notify(msg tracker.Message) int {
	payload, err := json.Marshal(Frame{Type: "message", Message: &msg})
	if err != nil {
		log.Printf("chat-encode-failed message=%s err=%v", msg.ID, err)
		return 0
	}
	return h.Broadcast(msg.InvestorID, payload)
}

// Close terminates all tracked connections.
func (h *Hub) Close() {
	h.mu.Lock()
	var conns []*Connection
	for _, room := range h.rooms {
		for _, conn := range room {
			conns = append(conns, conn)
		}
	}
	h.rooms = make(map[string]map[string]*Connection)
	h.mu.Unlock()

	h.metrics.Connected(-len(conns))
	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}
