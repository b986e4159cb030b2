package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationWebSocketHandler serves /ws/notifications, the standing
// per-user channel.
type NotificationWebSocketHandler struct {
	gateway  *Gateway
	registry *UserRegistry
}

func NewNotificationWebSocketHandler(gateway *Gateway, registry *UserRegistry) *NotificationWebSocketHandler {
	return &NotificationWebSocketHandler{gateway: gateway, registry: registry}
}

func (h *NotificationWebSocketHandler) Handle(c *gin.Context) {
	hs := h.gateway.beginHandshake(c, KindNotifications, uuid.Nil)
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

	userID := hs.identity.UserID
	h.gateway.start(c, hs, conn,
		func(client *Client) { h.registry.Register(userID, client) },
		func(client *Client) bool { return h.registry.DeregisterHandle(userID, client) },
	)
}
