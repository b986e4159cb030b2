package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatWebSocketHandler serves /ws/chat/:chat_id.
type ChatWebSocketHandler struct {
	gateway  *Gateway
	registry *Registry
	access   ChatAccess
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(gateway *Gateway, registry *Registry, access ChatAccess) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{gateway: gateway, registry: registry, access: access}
}

// Handle authenticates, authorises and upgrades the connection. Auth and
// access failures are reported as a 1008 close after the upgrade.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	hs := h.gateway.beginHandshake(c, KindChat, chatID)
	defer hs.span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.gateway.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	if hs.authErr != nil {
		h.gateway.reject(hs, conn, "invalid token")
		return
	}

	chat, err := h.access.GetByID(hs.ctx, chatID)
	if err != nil {
		h.gateway.reject(hs, conn, "chat not found")
		return
	}
	ok, err := h.access.HasAccess(hs.ctx, chat, hs.identity.UserID)
	if err != nil || !ok {
		h.gateway.reject(hs, conn, "access denied")
		return
	}

	userID := hs.identity.UserID
	h.gateway.start(c, hs, conn,
		func(client *Client) { h.registry.Register(chatID, userID, client) },
		func(client *Client) bool { return h.registry.DeregisterHandle(chatID, userID, client) },
	)
}
