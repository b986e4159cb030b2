// Package fanout routes outbound events to the live channels. Delivery is
// best-effort: failures are logged per recipient and never reach the caller.
package fanout

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/ws"
)

type Fanout struct {
	chats  *ws.Registry
	users  *ws.UserRegistry
	logger *zap.Logger
}

// New builds a Fanout over the chat and notification registries.
func New(chats *ws.Registry, users *ws.UserRegistry, logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{chats: chats, users: users, logger: logger}
}

// NotifyUsers sends env to each user's notification socket. Duplicate ids are
// delivered once; a failing recipient does not affect the others.
func (f *Fanout) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, env models.Envelope) {
	for _, userID := range lo.Uniq(userIDs) {
		f.NotifyUser(ctx, userID, env)
	}
}

func (f *Fanout) NotifyUser(ctx context.Context, userID uuid.UUID, env models.Envelope) {
	if err := f.users.Send(userID, env); err != nil {
		f.logger.Warn("notification delivery failed",
			zap.String("event", string(env.Type)),
			zap.Stringer("user_id", userID),
			zap.Error(err),
		)
	}
}

// NotifyChatExceptSender sends env to every chat socket of chatID except the sender's.
func (f *Fanout) NotifyChatExceptSender(ctx context.Context, chatID, senderID uuid.UUID, env models.Envelope) {
	if err := f.chats.BroadcastExcept(chatID, senderID, env); err != nil {
		f.logger.Warn("chat delivery failed",
			zap.String("event", string(env.Type)),
			zap.Stringer("chat_id", chatID),
			zap.Stringer("sender_id", senderID),
			zap.Error(err),
		)
	}
}

func (f *Fanout) NotifyChat(ctx context.Context, chatID uuid.UUID, env models.Envelope) {
	if err := f.chats.Broadcast(chatID, env); err != nil {
		f.logger.Warn("chat delivery failed",
			zap.String("event", string(env.Type)),
			zap.Stringer("chat_id", chatID),
			zap.Error(err),
		)
	}
}
