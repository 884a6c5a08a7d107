package service

import (
	"github.com/peerconnect/server/internal/domain"
)

// Notifier pushes live updates out to connected clients. Implemented by the
// WebSocket hub; services call it after a successful write so subscribers see
// the change without polling.
type Notifier interface {
	NotifyConnectionRequest(conn *domain.Connection)
	NotifyConnectionAccepted(conn *domain.Connection)
	NotifyConnectionDeclined(conn *domain.Connection)
	NotifyNewMessage(msg *domain.Message)
}
