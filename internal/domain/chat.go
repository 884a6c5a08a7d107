package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatThread is the message container for an accepted connection. It shares
// the connection's ID (1:1) and is created lazily on first accept.
type ChatThread struct {
	ID        string    `json:"id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// Involves reports whether userID is a participant of the thread.
func (t *ChatThread) Involves(userID string) bool {
	return t.UserA == userID || t.UserB == userID
}

// Message is immutable once created. CreatedAt is assigned by the store so
// ordering within a thread is consistent regardless of client clocks.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Joined fields
	SenderEmail       string `json:"sender_email,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}
