package domain

import (
	"time"
)

// Connection statuses. The only legal transition is pending → accepted;
// a declined request is deleted, not marked.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Connection is the relationship record between exactly two users. Its ID is
// the canonical pair ID, so at most one row can exist per unordered pair.
type Connection struct {
	ID         string     `json:"id"`
	UserA      string     `json:"user_a"`
	UserB      string     `json:"user_b"`
	Sender     string     `json:"sender"`
	Receiver   string     `json:"receiver"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	// Denormalized summary of the latest message, kept in step with the
	// thread by the chat repository.
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	// Joined fields for pending-request listings
	SenderEmail       string `json:"sender_email,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// Conversation is the list-view projection of an accepted connection,
// enriched with the peer's identity and the caller's unread count.
type Conversation struct {
	ID              string     `json:"id"`
	PeerID          string     `json:"peer_id"`
	PeerEmail       string     `json:"peer_email"`
	PeerDisplayName string     `json:"peer_display_name"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	Unread          int        `json:"unread"`
}

// CanonicalID derives the single connection ID for an unordered user pair by
// sorting the two IDs lexicographically and joining them. CanonicalID(a, b)
// and CanonicalID(b, a) always agree.
func CanonicalID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// Involves reports whether userID is one of the two parties.
func (c *Connection) Involves(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

// PeerOf returns the other party of the pair, or "" if userID is not a party.
func (c *Connection) PeerOf(userID string) string {
	switch userID {
	case c.UserA:
		return c.UserB
	case c.UserB:
		return c.UserA
	}
	return ""
}
