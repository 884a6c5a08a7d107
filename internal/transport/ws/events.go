package ws

import (
	"encoding/json"
	"time"

	"github.com/peerconnect/server/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeThreadSubscribe   = "thread.subscribe"
	EventTypeThreadUnsubscribe = "thread.unsubscribe"
	EventTypePing              = "ping"
)

// Event types - Server → Client
const (
	EventTypeThreadSnapshot     = "thread.snapshot"
	EventTypeMessageNew         = "message.new"
	EventTypeConnectionRequest  = "connection.request"
	EventTypeConnectionAccepted = "connection.accepted"
	EventTypeConnectionDeclined = "connection.declined"
	EventTypePong               = "pong"
	EventTypeError              = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ThreadPayload struct {
	ThreadID string `json:"thread_id"`
}

// --- Server → Client payloads ---

// SnapshotPayload carries the full ordered message history of a thread,
// delivered once on subscribe. Later changes arrive as message.new events.
type SnapshotPayload struct {
	Messages []domain.Message `json:"messages"`
}

type MessagePayload struct {
	domain.Message
}

type ConnectionPayload struct {
	domain.Connection
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, threadID string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		ThreadID:  threadID,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
