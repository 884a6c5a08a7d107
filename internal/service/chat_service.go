package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peerconnect/server/internal/domain"
	"github.com/peerconnect/server/internal/metrics"
	"github.com/peerconnect/server/internal/repository"
)

var (
	ErrThreadNotFound = errors.New("chat thread not found")
	ErrNotParticipant = errors.New("you are not a participant of this thread")
	ErrEmptyMessage   = errors.New("message content is empty")
)

// ChatService appends messages to threads and keeps the parent connection's
// last-message summary in step.
type ChatService struct {
	chatRepo repository.ChatRepository
	notifier Notifier
}

func NewChatService(chatRepo repository.ChatRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo}
}

func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SendMessage appends a message with a server-assigned timestamp. The message
// write and the summary update commit together, so a reader never sees one
// without the other.
func (s *ChatService) SendMessage(ctx context.Context, userID, threadID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	if err := s.checkParticipant(ctx, userID, threadID); err != nil {
		return nil, err
	}

	msg, err := s.chatRepo.AppendMessage(ctx, threadID, userID, content)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	metrics.MessagesSent.Inc()
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}

	return msg, nil
}

// ListMessages returns the thread's full history ordered ascending by the
// store-assigned timestamp.
func (s *ChatService) ListMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error) {
	if err := s.checkParticipant(ctx, userID, threadID); err != nil {
		return nil, err
	}

	msgs, err := s.chatRepo.ListMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// MarkRead records that the user has seen the thread up to now. Unread counts
// in conversation listings derive from this watermark. The timestamp is
// assigned by the store, on the same clock that stamps messages.
func (s *ChatService) MarkRead(ctx context.Context, userID, threadID string) error {
	if err := s.checkParticipant(ctx, userID, threadID); err != nil {
		return err
	}
	return s.chatRepo.MarkRead(ctx, threadID, userID)
}

func (s *ChatService) checkParticipant(ctx context.Context, userID, threadID string) error {
	thread, err := s.chatRepo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return ErrThreadNotFound
	}
	if !thread.Involves(userID) {
		return ErrNotParticipant
	}
	return nil
}
