package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// DuplicateWindow is the half-width of the window in which an identical
// message from the same sender to the same chat is rejected.
const DuplicateWindow = 2 * time.Second

// Notifier delivers events to connected users.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, env models.Envelope)
}

// ChatAccess resolves chats and their access rules.
type ChatAccess interface {
	GetByID(ctx context.Context, chatID uuid.UUID) (models.Chat, error)
	HasAccess(ctx context.Context, chat models.Chat, userID uuid.UUID) (bool, error)
}

// MessageService owns the message lifecycle: created, partially read, read by all.
type MessageService struct {
	messages repositories.MessageRepository
	groups   repositories.GroupRepository
	chats    ChatAccess
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewMessageService(messages repositories.MessageRepository, groups repositories.GroupRepository, chats ChatAccess, notifier Notifier, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		messages: messages,
		groups:   groups,
		chats:    chats,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateMessage persists a message unless the same sender posted the same
// text to the chat within DuplicateWindow of timestamp. It does not fan out.
func (s *MessageService) CreateMessage(ctx context.Context, chatID, senderID uuid.UUID, text string, timestamp time.Time) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, fmt.Errorf("message text required: %w", ErrValidation)
	}
	timestamp = timestamp.UTC()

	dup, err := s.messages.ExistsSimilar(ctx, chatID, senderID, text, timestamp.Add(-DuplicateWindow), timestamp.Add(DuplicateWindow))
	if err != nil {
		return models.Message{}, fmt.Errorf("check duplicate: %w", err)
	}
	if dup {
		return models.Message{}, ErrDuplicateMessage
	}

	msg, err := s.messages.CreateMessage(ctx, models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: timestamp,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("store message: %w", err)
	}
	return msg, nil
}

// MarkRead records that readerID has seen messageID. Only the call that
// creates the receipt can notify the sender; repeats are silent no-ops.
func (s *MessageService) MarkRead(ctx context.Context, messageID, readerID uuid.UUID) error {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get message: %w", err)
	}

	chat, err := s.chats.GetByID(ctx, msg.ChatID)
	if err != nil {
		return err
	}
	ok, err := s.chats.HasAccess(ctx, chat, readerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}

	created, readers, err := s.messages.RecordRead(ctx, messageID, readerID, s.now().UTC())
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("record read: %w", err)
	}
	if !created || readerID == msg.SenderID {
		return nil
	}

	if chat.IsPrivate() {
		s.notifier.NotifyUser(ctx, msg.SenderID, models.MustEnvelope(models.EventMessageRead,
			models.MessageReadStatusPayload{MessageID: msg.ID}))
		return nil
	}

	done, err := s.readByAll(ctx, msg, readerID, readers)
	if err != nil {
		return err
	}
	if done {
		s.logger.Debug("message read by all", zap.Stringer("message_id", msg.ID), zap.Int("readers", len(readers)))
		s.notifier.NotifyUser(ctx, msg.SenderID, models.MustEnvelope(models.EventMessageReadByAll,
			models.MessageReadStatusPayload{MessageID: msg.ID}))
	}
	return nil
}

// readByAll reports whether readerID's receipt is the one that completes the
// set of current group members, sender aside. Readers outside that set never
// complete it.
func (s *MessageService) readByAll(ctx context.Context, msg models.Message, readerID uuid.UUID, readers []uuid.UUID) (bool, error) {
	group, err := s.groups.GetByChatID(ctx, msg.ChatID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return false, fmt.Errorf("group for chat %s: %w", msg.ChatID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("get group: %w", err)
	}

	members, err := s.groups.MemberIDs(ctx, group.ID)
	if err != nil {
		return false, fmt.Errorf("list members: %w", err)
	}
	required := lo.Without(members, msg.SenderID)
	if !lo.Contains(required, readerID) {
		return false, nil
	}
	return lo.Every(readers, required), nil
}

// ChatHistory returns a page of chatID's messages for a participant.
func (s *MessageService) ChatHistory(ctx context.Context, chatID, userID uuid.UUID, page models.Page) ([]models.MessageView, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	ok, err := s.chats.HasAccess(ctx, chat, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	msgs, err := s.messages.ListChatMessages(ctx, chatID, page)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
