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
	ErrMissingPeerID      = errors.New("peer id is required")
	ErrPeerNotFound       = errors.New("no user exists with the provided id")
	ErrSelfConnection     = errors.New("cannot send a connection request to yourself")
	ErrRequestPending     = errors.New("a pending request already exists with this user")
	ErrAlreadyConnected   = errors.New("you are already connected with this user")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotReceiver        = errors.New("only the request receiver can perform this action")
	ErrNotPending         = errors.New("connection is not pending")
)

// ConnectionService owns the state machine that moves two identities from
// strangers to an active conversation.
type ConnectionService struct {
	connRepo repository.ConnectionRepository
	userRepo repository.UserRepository
	notifier Notifier
}

func NewConnectionService(connRepo repository.ConnectionRepository, userRepo repository.UserRepository) *ConnectionService {
	return &ConnectionService{
		connRepo: connRepo,
		userRepo: userRepo,
	}
}

// SetNotifier wires the live-update sink. Set after construction because the
// hub is built later in startup.
func (s *ConnectionService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SendRequest creates a pending connection from requester to peer. The
// connection ID is canonical for the pair, so a request in either direction
// lands on the same slot and duplicates are impossible.
func (s *ConnectionService) SendRequest(ctx context.Context, requesterID, peerID string) (*domain.Connection, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, ErrMissingPeerID
	}

	peer, err := s.userRepo.GetByID(ctx, peerID)
	if err != nil {
		return nil, fmt.Errorf("looking up peer: %w", err)
	}
	if peer == nil {
		return nil, ErrPeerNotFound
	}

	if requesterID == peerID {
		return nil, ErrSelfConnection
	}

	id := domain.CanonicalID(requesterID, peerID)
	existing, err := s.connRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == domain.StatusAccepted {
			return nil, ErrAlreadyConnected
		}
		return nil, ErrRequestPending
	}

	userA, userB := requesterID, peerID
	if userA > userB {
		userA, userB = userB, userA
	}

	conn := &domain.Connection{
		ID:       id,
		UserA:    userA,
		UserB:    userB,
		Sender:   requesterID,
		Receiver: peerID,
		Status:   domain.StatusPending,
	}

	if err := s.connRepo.Create(ctx, conn); err != nil {
		// A simultaneous request for the same pair can slip past the
		// existence check; the loser's insert conflicts on the canonical ID.
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("creating connection request: %w", err)
	}

	metrics.RequestsSent.Inc()
	if s.notifier != nil {
		s.notifier.NotifyConnectionRequest(conn)
	}

	return conn, nil
}

// AcceptRequest transitions a pending connection to accepted and materializes
// its chat thread. Retrying a successful accept is harmless: the thread is
// created at most once and the acceptance timestamp is not re-stamped.
func (s *ConnectionService) AcceptRequest(ctx context.Context, userID, connectionID string) (*domain.Connection, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}
	if conn.Receiver != userID {
		return nil, ErrNotReceiver
	}

	wasPending := conn.Status == domain.StatusPending

	accepted, err := s.connRepo.Accept(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}
	if accepted == nil {
		// Deleted between the read and the update; treat as declined.
		return nil, ErrConnectionNotFound
	}

	if wasPending {
		metrics.RequestsAccepted.Inc()
		if s.notifier != nil {
			s.notifier.NotifyConnectionAccepted(accepted)
		}
	}

	return accepted, nil
}

// DeclineRequest deletes a pending connection outright. The canonical ID slot
// is freed, so the requester may send a fresh request afterward.
func (s *ConnectionService) DeclineRequest(ctx context.Context, userID, connectionID string) error {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrConnectionNotFound
	}
	if conn.Receiver != userID {
		return ErrNotReceiver
	}
	if conn.Status != domain.StatusPending {
		return ErrNotPending
	}

	if err := s.connRepo.Delete(ctx, connectionID); err != nil {
		return fmt.Errorf("declining connection: %w", err)
	}

	metrics.RequestsDeclined.Inc()
	if s.notifier != nil {
		s.notifier.NotifyConnectionDeclined(conn)
	}

	return nil
}

// ListPending returns pending requests addressed to the user, each enriched
// with the sender's identity.
func (s *ConnectionService) ListPending(ctx context.Context, userID string) ([]domain.Connection, error) {
	conns, err := s.connRepo.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conns == nil {
		conns = []domain.Connection{}
	}
	return conns, nil
}

// ListConversations returns the user's accepted connections ordered by most
// recent activity, enriched with the peer's identity and unread counts.
func (s *ConnectionService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	convos, err := s.connRepo.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convos == nil {
		convos = []domain.Conversation{}
	}
	return convos, nil
}
