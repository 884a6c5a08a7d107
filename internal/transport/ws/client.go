package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/peerconnect/server/internal/domain"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Snapshotter provides the full ordered message history of a thread for the
// given user, refusing callers who are not participants. Implemented by the
// chat service.
type Snapshotter interface {
	ListMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error)
}

// Client represents a single WebSocket connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	userID    string
	snapshots Snapshotter
	logger    *zap.Logger

	// subscribedThreads tracks which chat threads this client listens to.
	// Subscriptions die with the connection; there is nothing to leak once
	// the client unregisters.
	subscribedThreads map[string]struct{}
	mu                sync.RWMutex

	send chan []byte
	done chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, snapshots Snapshotter, logger *zap.Logger) *Client {
	return &Client{
		hub:               hub,
		conn:              conn,
		userID:            userID,
		snapshots:         snapshots,
		logger:            logger,
		subscribedThreads: make(map[string]struct{}),
		send:              make(chan []byte, sendBufSize),
		done:              make(chan struct{}),
	}
}

// IsSubscribed checks if this client is subscribed to a thread.
func (c *Client) IsSubscribed(threadID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscribedThreads[threadID]
	return ok
}

// Subscribe adds a thread subscription.
func (c *Client) Subscribe(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedThreads[threadID] = struct{}{}
}

// Unsubscribe removes a thread subscription.
func (c *Client) Unsubscribe(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedThreads, threadID)
}

// ReadPump reads events from the WebSocket and handles them.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				c.logger.Warn("read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes events from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Warn("write error", zap.String("user_id", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeThreadSubscribe:
		var p ThreadPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ThreadID == "" {
			c.sendError("INVALID_PAYLOAD", "invalid thread.subscribe payload")
			return
		}
		c.subscribeThread(p.ThreadID)

	case EventTypeThreadUnsubscribe:
		var p ThreadPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ThreadID == "" {
			c.sendError("INVALID_PAYLOAD", "invalid thread.unsubscribe payload")
			return
		}
		c.Unsubscribe(p.ThreadID)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

// subscribeThread attaches the client to a thread's live updates. The
// snapshot lookup doubles as the authorization check: non-participants are
// rejected before any subscription is recorded.
func (c *Client) subscribeThread(threadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	msgs, err := c.snapshots.ListMessages(ctx, c.userID, threadID)
	if err != nil {
		c.sendError("SUBSCRIBE_REJECTED", err.Error())
		return
	}

	c.Subscribe(threadID)

	evt, err := NewEvent(EventTypeThreadSnapshot, threadID, SnapshotPayload{Messages: msgs})
	if err != nil {
		c.logger.Error("marshal snapshot", zap.Error(err))
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, "", ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
