// Package sse fans audit entries out to connected operator streams.
package sse

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bankline/chat-gateway/internal/domain/audit"
)

const clientBuffer = 100

var ErrClientNotFound = errors.New("sse client not found")

// Message is one server-sent event.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client is one connected stream. An empty UserID receives every entry.
type Client struct {
	ID          string
	UserID      string
	ConnectedAt time.Time
	Messages    chan *Message
}

func NewClient(id, userID string) *Client {
	return &Client{
		ID:          id,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		Messages:    make(chan *Message, clientBuffer),
	}
}

// Hub manages SSE clients. Slow clients miss events rather than block
// the audit writer.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	dropped int
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.ID]; ok {
		close(old.Messages)
	}
	h.clients[c.ID] = c
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		close(c.Messages)
		delete(h.clients, clientID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped reports how many events were skipped because a client was full.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Publish implements audit.Observer.
func (h *Hub) Publish(entry *audit.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	msg := &Message{
		ID:        entry.EntryID.String(),
		Event:     string(entry.Event),
		Data:      data,
		Timestamp: entry.CreatedAt,
	}
	if msg.ID == uuid.Nil.String() {
		msg.ID = uuid.NewString()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if c.UserID != "" && c.UserID != entry.UserID {
			continue
		}
		if !trySend(c, msg) {
			h.dropped++
		}
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.Messages)
		delete(h.clients, id)
	}
}

func trySend(c *Client, msg *Message) bool {
	select {
	case c.Messages <- msg:
		return true
	default:
		return false
	}
}

var _ audit.Observer = (*Hub)(nil)
