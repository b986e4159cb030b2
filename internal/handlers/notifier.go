package handlers

import (
	"context"

	"github.com/google/uuid"

	"messenger-service/internal/models"
)

// Notifier fans events out to connected clients.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, env models.Envelope)
	NotifyUsers(ctx context.Context, userIDs []uuid.UUID, env models.Envelope)
	NotifyChatExceptSender(ctx context.Context, chatID, senderID uuid.UUID, env models.Envelope)
}
