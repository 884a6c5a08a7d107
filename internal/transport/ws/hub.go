package ws

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/peerconnect/server/internal/metrics"
)

// Hub manages all active WebSocket clients and routes events to them. The
// clients map is owned by the Run loop; all mutation goes through channels.
type Hub struct {
	// clients maps userID → client.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	direct     chan *directMsg

	logger *zap.Logger
}

type broadcastMsg struct {
	threadID string
	data     []byte
}

type directMsg struct {
	userID string
	data   []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		direct:     make(chan *directMsg, 256),
		logger:     logger,
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			// A reconnect displaces the previous connection for this user.
			if old, ok := h.clients[client.userID]; ok && old != client {
				h.drop(old)
			}
			h.clients[client.userID] = client
			metrics.WSConnections.Set(float64(len(h.clients)))
			h.logger.Info("client connected",
				zap.String("user_id", client.userID),
				zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			// A displaced connection's late unregister must not tear down
			// its replacement, so drop only the exact client we track.
			if current, ok := h.clients[client.userID]; ok && current == client {
				h.drop(client)
				h.logger.Info("client disconnected",
					zap.String("user_id", client.userID),
					zap.Int("total", len(h.clients)))
			}

		case msg := <-h.broadcast:
			for _, client := range h.clients {
				// Only deliver to clients subscribed to this thread.
				if !client.IsSubscribed(msg.threadID) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client buffer full - disconnect
					h.drop(client)
				}
			}

		case msg := <-h.direct:
			if client, ok := h.clients[msg.userID]; ok {
				select {
				case client.send <- msg.data:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client.userID)
	close(client.send)
	close(client.done)
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// BroadcastToThread sends an event to all subscribers of a thread.
func (h *Hub) BroadcastToThread(threadID string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal broadcast event", zap.Error(err))
		return
	}
	h.broadcast <- &broadcastMsg{
		threadID: threadID,
		data:     data,
	}
}

// BroadcastToUser sends an event directly to a specific user, if connected.
func (h *Hub) BroadcastToUser(userID string, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal direct event", zap.Error(err))
		return
	}
	h.direct <- &directMsg{
		userID: userID,
		data:   data,
	}
}
