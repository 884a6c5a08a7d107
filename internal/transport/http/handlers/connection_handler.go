package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/peerconnect/server/internal/service"
	"github.com/peerconnect/server/internal/transport/http/middleware"
)

type ConnectionHandler struct {
	connService *service.ConnectionService
	logger      *zap.Logger
}

func NewConnectionHandler(connService *service.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{connService: connService, logger: logger}
}

func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		PeerID string `json:"peer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	conn, err := h.connService.SendRequest(r.Context(), userID, input.PeerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingPeerID):
			writeError(w, http.StatusBadRequest, "MISSING_PEER_ID", "Please enter a valid user ID")
		case errors.Is(err, service.ErrPeerNotFound):
			writeError(w, http.StatusNotFound, "PEER_NOT_FOUND", "No user exists with the provided ID")
		case errors.Is(err, service.ErrSelfConnection):
			writeError(w, http.StatusBadRequest, "SELF_CONNECTION", "You cannot send a connection request to your own ID")
		case errors.Is(err, service.ErrRequestPending):
			writeError(w, http.StatusConflict, "REQUEST_PENDING", "A request with this user is already pending")
		case errors.Is(err, service.ErrAlreadyConnected):
			writeError(w, http.StatusConflict, "ALREADY_CONNECTED", "You are already connected with this user")
		default:
			h.logger.Error("send connection request", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

func (h *ConnectionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conns, err := h.connService.ListPending(r.Context(), userID)
	if err != nil {
		h.logger.Error("list pending requests", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, conns)
}

func (h *ConnectionHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convos, err := h.connService.ListConversations(r.Context(), userID)
	if err != nil {
		h.logger.Error("list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convos)
}

func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	connectionID := r.PathValue("id")

	conn, err := h.connService.AcceptRequest(r.Context(), userID, connectionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Connection not found")
		case errors.Is(err, service.ErrNotReceiver):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the receiver can accept this request")
		default:
			h.logger.Error("accept connection request", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, conn)
}

func (h *ConnectionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	connectionID := r.PathValue("id")

	if err := h.connService.DeclineRequest(r.Context(), userID, connectionID); err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Connection not found")
		case errors.Is(err, service.ErrNotReceiver):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the receiver can decline this request")
		case errors.Is(err, service.ErrNotPending):
			writeError(w, http.StatusConflict, "NOT_PENDING", "Connection is no longer pending")
		default:
			h.logger.Error("decline connection request", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
