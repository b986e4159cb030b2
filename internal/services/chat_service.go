package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// ChatService resolves chats and decides who may see them.
type ChatService struct {
	chats  repositories.ChatRepository
	groups repositories.GroupRepository
	users  repositories.UserRepository
}

func NewChatService(chats repositories.ChatRepository, groups repositories.GroupRepository, users repositories.UserRepository) *ChatService {
	return &ChatService{chats: chats, groups: groups, users: users}
}

// GetByID returns the chat or ErrNotFound.
func (s *ChatService) GetByID(ctx context.Context, chatID uuid.UUID) (models.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if errors.Is(err, repositories.ErrChatNotFound) {
		return models.Chat{}, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return models.Chat{}, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

// ResolveOrCreatePrivateChat returns the private chat of the unordered pair,
// creating it on first use. The bool reports whether this call created it.
func (s *ChatService) ResolveOrCreatePrivateChat(ctx context.Context, userA, userB uuid.UUID) (models.Chat, bool, error) {
	if userA == userB {
		return models.Chat{}, false, fmt.Errorf("private chat with self: %w", ErrValidation)
	}

	chat, err := s.chats.GetPrivateChat(ctx, userA, userB)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, repositories.ErrChatNotFound) {
		return models.Chat{}, false, fmt.Errorf("lookup private chat: %w", err)
	}

	a, err := s.lookupUser(ctx, userA)
	if err != nil {
		return models.Chat{}, false, err
	}
	b, err := s.lookupUser(ctx, userB)
	if err != nil {
		return models.Chat{}, false, err
	}

	chat, created, err := s.chats.CreatePrivateChat(ctx, a.Name+"_"+b.Name, userA, userB)
	if err != nil {
		return models.Chat{}, false, fmt.Errorf("create private chat: %w", err)
	}
	return chat, created, nil
}

// HasAccess reports whether userID may read and write chat. Private chats
// admit the two participants of the pair; public chats admit current group members.
func (s *ChatService) HasAccess(ctx context.Context, chat models.Chat, userID uuid.UUID) (bool, error) {
	var (
		ok  bool
		err error
	)
	switch chat.Kind {
	case models.ChatPrivate:
		ok, err = s.chats.IsPrivateParticipant(ctx, chat.ID, userID)
	case models.ChatPublic:
		ok, err = s.groups.IsMemberByChat(ctx, chat.ID, userID)
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check chat access: %w", err)
	}
	return ok, nil
}

// ListUserChats returns the user's private and group chats, most recent activity first.
func (s *ChatService) ListUserChats(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.ChatSummary, error) {
	chats, err := s.chats.ListUserChats(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

func (s *ChatService) lookupUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
