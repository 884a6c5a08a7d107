package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peerconnect/server/internal/domain"
	"github.com/peerconnect/server/internal/repository"
)

// memStore is an in-memory stand-in for the postgres repositories. It
// implements UserRepository, ConnectionRepository and ChatRepository with the
// same observable semantics: canonical-ID keyed connections, idempotent
// accept, transactional append with a shared server timestamp.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	connections map[string]*domain.Connection
	threads     map[string]*domain.ChatThread
	messages    map[string][]domain.Message
	reads       map[string]map[string]time.Time
	clock       time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*domain.User),
		connections: make(map[string]*domain.Connection),
		threads:     make(map[string]*domain.ChatThread),
		messages:    make(map[string][]domain.Message),
		reads:       make(map[string]map[string]time.Time),
		clock:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// now plays the role of the store's server-assigned timestamp: strictly
// monotonic across writes.
func (m *memStore) now() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memStore) addUser(id, email string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: id, Email: email, DisplayName: email, CreatedAt: m.now()}
	m.users[id] = u
	return u
}

func (m *memStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateConnection(ctx context.Context, conn *domain.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.connections[conn.ID]; ok {
		return repository.ErrConflict
	}
	conn.CreatedAt = m.now()
	cp := *conn
	m.connections[conn.ID] = &cp
	return nil
}

func (m *memStore) GetConnection(ctx context.Context, id string) (*domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Accept(ctx context.Context, id string) (*domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[id]
	if !ok {
		return nil, nil
	}
	c.Status = domain.StatusAccepted
	if c.AcceptedAt == nil {
		at := m.now()
		c.AcceptedAt = &at
	}
	if c.LastMessageAt == nil {
		c.LastMessageAt = c.AcceptedAt
	}
	if _, ok := m.threads[id]; !ok {
		m.threads[id] = &domain.ChatThread{
			ID: id, UserA: c.UserA, UserB: c.UserB, CreatedAt: m.now(),
		}
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
	delete(m.threads, id)
	delete(m.messages, id)
	return nil
}

func (m *memStore) ListPending(ctx context.Context, receiverID string) ([]domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Connection
	for _, c := range m.connections {
		if c.Receiver == receiverID && c.Status == domain.StatusPending {
			cp := *c
			if s, ok := m.users[c.Sender]; ok {
				cp.SenderEmail = s.Email
				cp.SenderDisplayName = s.DisplayName
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Conversation
	for _, c := range m.connections {
		if c.Status != domain.StatusAccepted || !c.Involves(userID) {
			continue
		}
		peerID := c.PeerOf(userID)
		cv := domain.Conversation{
			ID:            c.ID,
			PeerID:        peerID,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt,
		}
		if p, ok := m.users[peerID]; ok {
			cv.PeerEmail = p.Email
			cv.PeerDisplayName = p.DisplayName
		}
		watermark := time.Time{}
		if byUser, ok := m.reads[c.ID]; ok {
			watermark = byUser[userID]
		}
		for _, msg := range m.messages[c.ID] {
			if msg.Sender != userID && msg.CreatedAt.After(watermark) {
				cv.Unread++
			}
		}
		out = append(out, cv)
	}
	// Most recent activity first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if later(out[j].LastMessageAt, out[i].LastMessageAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func later(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

func (m *memStore) GetThread(ctx context.Context, id string) (*domain.ChatThread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) AppendMessage(ctx context.Context, threadID, senderID, content string) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := domain.Message{
		ID:        uuid.New(),
		ThreadID:  threadID,
		Sender:    senderID,
		Content:   content,
		CreatedAt: m.now(),
	}
	m.messages[threadID] = append(m.messages[threadID], msg)
	if c, ok := m.connections[threadID]; ok {
		c.LastMessage = &msg.Content
		at := msg.CreatedAt
		c.LastMessageAt = &at
	}
	cp := msg
	return &cp, nil
}

func (m *memStore) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Message, len(m.messages[threadID]))
	copy(out, m.messages[threadID])
	return out, nil
}

func (m *memStore) MarkRead(ctx context.Context, threadID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reads[threadID]; !ok {
		m.reads[threadID] = make(map[string]time.Time)
	}
	if at := m.now(); at.After(m.reads[threadID][userID]) {
		m.reads[threadID][userID] = at
	}
	return nil
}

// connRepo adapts memStore's connection methods to the repository interface
// (Create/GetByID collide with the user methods' names).
type connRepo struct{ *memStore }

func (r connRepo) Create(ctx context.Context, conn *domain.Connection) error {
	return r.CreateConnection(ctx, conn)
}

func (r connRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	return r.GetConnection(ctx, id)
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	requests  []string
	accepted  []string
	declined  []string
	messages  []string
}

func (n *recordingNotifier) NotifyConnectionRequest(conn *domain.Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, conn.ID)
}

func (n *recordingNotifier) NotifyConnectionAccepted(conn *domain.Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, conn.ID)
}

func (n *recordingNotifier) NotifyConnectionDeclined(conn *domain.Connection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.declined = append(n.declined, conn.ID)
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg.ThreadID)
}
