package repository

import (
	"context"
	"errors"

	"github.com/peerconnect/server/internal/domain"
)

// ErrConflict is returned by Create when the row already exists. Two writers
// can pass an existence check together; the loser's insert surfaces as this
// instead of a bare constraint violation.
var ErrConflict = errors.New("row already exists")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.Connection) error
	GetByID(ctx context.Context, id string) (*domain.Connection, error)
	// Accept marks the connection accepted and creates its chat thread in a
	// single transaction. Safe to retry: timestamps are only stamped once and
	// the thread insert is a no-op if the thread already exists.
	Accept(ctx context.Context, id string) (*domain.Connection, error)
	Delete(ctx context.Context, id string) error
	ListPending(ctx context.Context, receiverID string) ([]domain.Connection, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type ChatRepository interface {
	GetThread(ctx context.Context, id string) (*domain.ChatThread, error)
	// AppendMessage inserts the message and updates the parent connection's
	// last-message summary in a single transaction, using one server-assigned
	// timestamp for both.
	AppendMessage(ctx context.Context, threadID, senderID, content string) (*domain.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]domain.Message, error)
	// MarkRead stamps the watermark with the store's clock, the same clock
	// that stamps messages, so unread counts are immune to app/DB skew.
	MarkRead(ctx context.Context, threadID, userID string) error
}
