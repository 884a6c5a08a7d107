package service

import (
	"context"
	"testing"

	"github.com/peerconnect/server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectionFixture(t *testing.T) (*memStore, *ConnectionService, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	store.addUser("u1", "a@x.com")
	store.addUser("u2", "b@x.com")

	svc := NewConnectionService(connRepo{store}, store)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)
	return store, svc, notifier
}

func TestSendRequestCreatesPending(t *testing.T) {
	ctx := context.Background()
	_, svc, notifier := newConnectionFixture(t)

	conn, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	assert.Equal(t, "u1_u2", conn.ID)
	assert.Equal(t, domain.StatusPending, conn.Status)
	assert.Equal(t, "u1", conn.Sender)
	assert.Equal(t, "u2", conn.Receiver)
	assert.Equal(t, []string{"u1_u2"}, notifier.requests)
}

func TestSendRequestTrimsPeerID(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newConnectionFixture(t)

	conn, err := svc.SendRequest(ctx, "u1", "  u2  ")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", conn.ID)
}

func TestSendRequestValidation(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "   ")
	assert.ErrorIs(t, err, ErrMissingPeerID)

	_, err = svc.SendRequest(ctx, "u1", "nonexistent")
	assert.ErrorIs(t, err, ErrPeerNotFound)

	_, err = svc.SendRequest(ctx, "u1", "u1")
	assert.ErrorIs(t, err, ErrSelfConnection)
}

func TestSendRequestDuplicateEitherDirection(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, "u1", "u2")
	assert.ErrorIs(t, err, ErrRequestPending)

	// Reverse direction lands on the same canonical slot.
	_, err = svc.SendRequest(ctx, "u2", "u1")
	assert.ErrorIs(t, err, ErrRequestPending)

	assert.Len(t, store.connections, 1)
}

// blindConnRepo reports every canonical slot as free, the window two
// simultaneous requests for the same pair share before one of them inserts.
type blindConnRepo struct{ connRepo }

func (r blindConnRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	return nil, nil
}

func TestSendRequestConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newConnectionFixture(t)

	svc := NewConnectionService(blindConnRepo{connRepo{store}}, store)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	// The loser's insert hits the canonical-ID constraint and must read as
	// the ordinary duplicate, not an internal error.
	_, err = svc.SendRequest(ctx, "u2", "u1")
	assert.ErrorIs(t, err, ErrRequestPending)
	assert.Len(t, store.connections, 1)
}

func TestSendRequestToAlreadyConnectedPeer(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, "u1", "u2")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()
	store, svc, notifier := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	conn, err := svc.AcceptRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAccepted, conn.Status)
	require.NotNil(t, conn.AcceptedAt)
	require.NotNil(t, conn.LastMessageAt)

	thread := store.threads["u1_u2"]
	require.NotNil(t, thread)
	assert.ElementsMatch(t, []string{"u1", "u2"}, []string{thread.UserA, thread.UserB})
	assert.Equal(t, []string{"u1_u2"}, notifier.accepted)
}

func TestAcceptRequestOnlyReceiver(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = svc.AcceptRequest(ctx, "u1", "u1_u2")
	assert.ErrorIs(t, err, ErrNotReceiver)

	_, err = svc.AcceptRequest(ctx, "u2", "missing")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestAcceptRequestIdempotent(t *testing.T) {
	ctx := context.Background()
	store, svc, notifier := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	first, err := svc.AcceptRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)
	createdAt := store.threads["u1_u2"].CreatedAt

	// A client retry must not create a second thread or re-stamp times.
	second, err := svc.AcceptRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)

	assert.Len(t, store.threads, 1)
	assert.Equal(t, createdAt, store.threads["u1_u2"].CreatedAt)
	assert.Equal(t, first.AcceptedAt, second.AcceptedAt)
	// Only the first transition notifies.
	assert.Equal(t, []string{"u1_u2"}, notifier.accepted)
}

func TestDeclineRequestFreesSlot(t *testing.T) {
	ctx := context.Background()
	store, svc, notifier := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	err = svc.DeclineRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)
	assert.Empty(t, store.connections)
	assert.Equal(t, []string{"u1_u2"}, notifier.declined)

	// The canonical slot is free again.
	conn, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, conn.Status)
}

func TestDeclineRequestGuards(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newConnectionFixture(t)

	err := svc.DeclineRequest(ctx, "u2", "missing")
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	_, err = svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	err = svc.DeclineRequest(ctx, "u1", "u1_u2")
	assert.ErrorIs(t, err, ErrNotReceiver)

	_, err = svc.AcceptRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)

	err = svc.DeclineRequest(ctx, "u2", "u1_u2")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestListPendingEnrichesSender(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := newConnectionFixture(t)

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u1", pending[0].Sender)
	assert.Equal(t, "a@x.com", pending[0].SenderEmail)

	// The sender sees no incoming requests.
	none, err := svc.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	ctx := context.Background()
	store, svc, _ := newConnectionFixture(t)
	store.addUser("u3", "c@x.com")

	_, err := svc.SendRequest(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, "u2", "u1_u2")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, "u1", "u3")
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, "u3", "u1_u3")
	require.NoError(t, err)

	// Newest message puts u2 back on top.
	chat := NewChatService(store)
	_, err = chat.SendMessage(ctx, "u3", "u1_u3", "hi")
	require.NoError(t, err)
	_, err = chat.SendMessage(ctx, "u2", "u1_u2", "hello there")
	require.NoError(t, err)

	convos, err := svc.ListConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, convos, 2)
	assert.Equal(t, "u2", convos[0].PeerID)
	assert.Equal(t, "b@x.com", convos[0].PeerEmail)
	assert.Equal(t, "hello there", *convos[0].LastMessage)
	assert.Equal(t, "u3", convos[1].PeerID)
}
