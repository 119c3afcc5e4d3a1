package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/logger"
	"github.com/shamsucomsoft/onv-ncne-api/services"
)

const (
	MessageSyncCompleted = "sync_completed"
	MessagePing          = "ping"
	MessagePong          = "pong"
	MessageConnected     = "connected"
)

// Message is the envelope for everything sent over the live feed.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Hub fans sync events out to connected dashboard clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	origins    []string
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub(origins []string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		origins:    origins,
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.L().Info("🔌 Live feed client connected", zap.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.L().Info("🔌 Live feed client disconnected", zap.String("user_id", client.userID))

		case data := <-h.broadcast:
			h.fanOut(data)
		}
	}
}

func (h *Hub) fanOut(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			logger.L().Warn("⚠️ Dropping slow live feed client", zap.String("user_id", client.userID))
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// NotifySync queues a sync_completed message. It never waits on clients.
func (h *Hub) NotifySync(ctx context.Context, event services.SyncEvent) error {
	data, err := json.Marshal(&Message{Type: MessageSyncCompleted, Timestamp: event.At, Data: event})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		logger.L().Warn("⚠️ Live feed backlog full, event dropped", zap.String("status", event.Status))
		return nil
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
