package ws

import (
	"go.uber.org/zap"

	"github.com/peerconnect/server/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub. Lifecycle
// events go straight to the affected user; messages fan out to the thread's
// subscribers.
type HubNotifier struct {
	hub    *Hub
	logger *zap.Logger
}

func NewHubNotifier(hub *Hub, logger *zap.Logger) *HubNotifier {
	return &HubNotifier{hub: hub, logger: logger}
}

func (n *HubNotifier) NotifyConnectionRequest(conn *domain.Connection) {
	evt, err := NewEvent(EventTypeConnectionRequest, "", ConnectionPayload{Connection: *conn})
	if err != nil {
		n.logger.Error("marshal connection request event", zap.Error(err))
		return
	}
	n.hub.BroadcastToUser(conn.Receiver, evt)
}

func (n *HubNotifier) NotifyConnectionAccepted(conn *domain.Connection) {
	evt, err := NewEvent(EventTypeConnectionAccepted, "", ConnectionPayload{Connection: *conn})
	if err != nil {
		n.logger.Error("marshal connection accepted event", zap.Error(err))
		return
	}
	n.hub.BroadcastToUser(conn.Sender, evt)
}

func (n *HubNotifier) NotifyConnectionDeclined(conn *domain.Connection) {
	evt, err := NewEvent(EventTypeConnectionDeclined, "", ConnectionPayload{Connection: *conn})
	if err != nil {
		n.logger.Error("marshal connection declined event", zap.Error(err))
		return
	}
	n.hub.BroadcastToUser(conn.Sender, evt)
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageNew, msg.ThreadID, MessagePayload{Message: *msg})
	if err != nil {
		n.logger.Error("marshal message event", zap.Error(err))
		return
	}
	n.hub.BroadcastToThread(msg.ThreadID, evt)
}
