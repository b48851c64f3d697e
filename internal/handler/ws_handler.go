package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/metrics"
	"socialvibe/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSMessage is a frame sent by a client over the chat stream.
type WSMessage struct {
	Type       string      `json:"type"`
	Content    string      `json:"content,omitempty"`
	MessageIDs []uuid.UUID `json:"message_ids,omitempty"`
}

const (
	wsTypeMessage = "message"
	wsTypeRead    = "read"
)

type WSHandler struct {
	chats   service.ChatService
	hub     *hub.Hub
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewWSHandler(chats service.ChatService, h *hub.Hub, m *metrics.Metrics, logger *zap.Logger) *WSHandler {
	return &WSHandler{chats: chats, hub: h, metrics: m, logger: logger}
}

// HandleWebSocket godoc
// @Summary      Chat event stream
// @Description  Upgrades to a websocket delivering the chat's events. Clients may send {"type":"message","content":...} and {"type":"read","message_ids":[...]}.
// @Tags         chats
// @Param        id      path   string  true  "Chat ID"
// @Param        user_id query  string  false "Member ID (defaults to the bearer token's user)"
// @Success      101     {string} string "Switching Protocols"
// @Failure      400     {object} ErrorResponse
// @Failure      403     {object} ErrorResponse
// @Router       /api/chats/{id}/ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	chatID, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}
	userID, ok := actingUser(c, c.Query("user_id"))
	if !ok {
		return
	}

	member, err := h.chats.IsMember(c.Request.Context(), chatID, userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: service.ErrNotChatMember.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := make(hub.Client, sendBuffer)
	h.hub.Subscribe(chatID, userID, client)
	// A removal that landed between the check above and Subscribe would have
	// found nothing to kick.
	if still, err := h.chats.IsMember(c.Request.Context(), chatID, userID); err != nil || !still {
		h.hub.Unsubscribe(chatID, client)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, service.ErrNotChatMember.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.metrics.WebsocketOpened()
	h.logger.Debug("Websocket client connected",
		zap.String("chat_id", chatID.String()),
		zap.String("user_id", userID.String()),
	)

	go h.writePump(conn, client)
	h.readPump(conn, chatID, userID)

	h.hub.Unsubscribe(chatID, client)
	h.metrics.WebsocketClosed()
}

func (h *WSHandler) readPump(conn *websocket.Conn, chatID, userID uuid.UUID) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("Ignoring malformed websocket frame", zap.Error(err))
			continue
		}
		h.handleMessage(chatID, userID, msg)
	}
}

// handleMessage runs client frames through the same service calls as the
// REST routes; the results reach every client through the hub.
func (h *WSHandler) handleMessage(chatID, userID uuid.UUID, msg WSMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	var err error
	switch msg.Type {
	case wsTypeMessage:
		if msg.Content == "" {
			return
		}
		_, err = h.chats.SendMessage(ctx, chatID, userID, msg.Content)
	case wsTypeRead:
		_, err = h.chats.MarkRead(ctx, chatID, userID, msg.MessageIDs)
	default:
		h.logger.Debug("Unknown websocket frame type", zap.String("type", msg.Type))
		return
	}
	if err != nil {
		h.logger.Warn("Websocket frame failed",
			zap.String("type", msg.Type),
			zap.String("chat_id", chatID.String()),
			zap.Error(err),
		)
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, client hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
