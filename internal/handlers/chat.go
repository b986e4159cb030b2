package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messenger-service/internal/services"
)

// ChatHandler lists the caller's chats.
type ChatHandler struct {
	chats  *services.ChatService
	logger *zap.Logger
}

func NewChatHandler(chats *services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

// ListChats handles GET /chats.
func (h *ChatHandler) ListChats(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	userID, _ := currentUser(c)
	chats, err := h.chats.ListUserChats(c.Request.Context(), userID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}
