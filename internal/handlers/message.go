package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/services"
)

// MessageHandler serves message posting and chat history.
type MessageHandler struct {
	messages *services.MessageService
	chats    *services.ChatService
	users    *services.UserService
	notifier Notifier
	events   *observability.EventBus
	logger   *zap.Logger
	now      func() time.Time
}

func NewMessageHandler(messages *services.MessageService, chats *services.ChatService, users *services.UserService, notifier Notifier, events *observability.EventBus, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		chats:    chats,
		users:    users,
		notifier: notifier,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

type sendMessageRequest struct {
	ChatID       *uuid.UUID `json:"chat_id"`
	TargetUserID *uuid.UUID `json:"target_user_id"`
	Text         string     `json:"text" binding:"required"`
}

// PostMessage handles POST /messages. The chat is either named directly or
// resolved as the private chat with target_user_id, never both.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.ChatID == nil) == (req.TargetUserID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of chat_id or target_user_id required"})
		return
	}

	ctx := c.Request.Context()
	senderID, senderName := currentUser(c)

	var (
		chat        models.Chat
		chatCreated bool
		err         error
	)
	if req.ChatID != nil {
		chat, err = h.chats.GetByID(ctx, *req.ChatID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		ok, err := h.chats.HasAccess(ctx, chat, senderID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if !ok {
			respondError(c, h.logger, services.ErrAccessDenied)
			return
		}
	} else {
		if _, err := h.users.GetByID(ctx, *req.TargetUserID); err != nil {
			respondError(c, h.logger, err)
			return
		}
		chat, chatCreated, err = h.chats.ResolveOrCreatePrivateChat(ctx, senderID, *req.TargetUserID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	msg, err := h.messages.CreateMessage(ctx, chat.ID, senderID, req.Text, h.now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	observability.IncMessageCreated(string(chat.Kind))

	h.notifier.NotifyChatExceptSender(ctx, chat.ID, senderID, models.MustEnvelope(models.EventNewMessage, models.NewMessagePayload{
		MessageID: msg.ID,
		ChatID:    chat.ID,
		SenderID:  senderID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}))

	if req.TargetUserID != nil {
		target := *req.TargetUserID
		if chatCreated {
			h.notifier.NotifyUser(ctx, target, models.MustEnvelope(models.EventChatCreated, models.ChatCreatedPayload{
				ChatID:      chat.ID,
				InviterName: senderName,
			}))
		}
		h.notifier.NotifyUser(ctx, target, models.MustEnvelope(models.EventNewMessage, models.NewMessageNotificationPayload{
			ChatID:     chat.ID,
			SenderName: senderName,
			Text:       msg.Text,
		}))
	}

	h.events.Publish(ctx, observability.RoutingMessages, observability.EventEnvelope{
		EventType: "message_events",
		EventName: "message_created",
		Payload: map[string]interface{}{
			"message_id": msg.ID,
			"chat_id":    chat.ID,
			"sender_id":  senderID,
			"chat_type":  chat.Kind,
		},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	c.JSON(http.StatusCreated, gin.H{"message_id": msg.ID, "chat_id": chat.ID})
}

// ChatHistory handles GET /messages/by-chat/:chat_id.
func (h *MessageHandler) ChatHistory(c *gin.Context) {
	chatID, ok := parseUUIDParam(c, "chat_id")
	if !ok {
		return
	}
	page, ok := parsePage(c)
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	msgs, err := h.messages.ChatHistory(c.Request.Context(), chatID, userID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
