package repositories

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID uuid.UUID) (models.Chat, error)
	GetPrivateChat(ctx context.Context, userA, userB uuid.UUID) (models.Chat, error)
	CreatePrivateChat(ctx context.Context, name string, userA, userB uuid.UUID) (models.Chat, bool, error)
	IsPrivateParticipant(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (bool, error)
	ListUserChats(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.ChatSummary, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// orderPair returns the pair in the order stored in private_chat_pairs.
func orderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID uuid.UUID) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, name, kind, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// GetPrivateChat looks up the private chat of an unordered pair.
func (r *ChatRepo) GetPrivateChat(ctx context.Context, userA, userB uuid.UUID) (models.Chat, error) {
	low, high := orderPair(userA, userB)
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT c.id, c.name, c.kind, c.created_at FROM chats c
        INNER JOIN private_chat_pairs p ON p.chat_id = c.id
        WHERE p.user_low_id=$1 AND p.user_high_id=$2`, low, high)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// CreatePrivateChat creates the chat for a pair, or returns the existing one
// when another request created it first. The bool reports whether this call created it.
func (r *ChatRepo) CreatePrivateChat(ctx context.Context, name string, userA, userB uuid.UUID) (models.Chat, bool, error) {
	low, high := orderPair(userA, userB)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, false, err
	}
	defer tx.Rollback()

	chat := models.Chat{ID: uuid.New(), Name: name, Kind: models.ChatPrivate, CreatedAt: time.Now().UTC()}
	if _, err := tx.ExecContext(ctx, `INSERT INTO chats (id, name, kind, created_at) VALUES ($1, $2, $3, $4)`,
		chat.ID, chat.Name, chat.Kind, chat.CreatedAt); err != nil {
		return models.Chat{}, false, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO private_chat_pairs (chat_id, user_low_id, user_high_id) VALUES ($1, $2, $3)
        ON CONFLICT (user_low_id, user_high_id) DO NOTHING`, chat.ID, low, high)
	if err != nil {
		return models.Chat{}, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.Chat{}, false, err
	}
	if inserted == 0 {
		// lost the race; drop our chat row and use the winner's
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return models.Chat{}, false, err
		}
		existing, err := r.GetPrivateChat(ctx, low, high)
		return existing, false, err
	}

	if err := tx.Commit(); err != nil {
		return models.Chat{}, false, err
	}
	return chat, true, nil
}

// IsPrivateParticipant checks whether a user is one of the pair of a private chat.
func (r *ChatRepo) IsPrivateParticipant(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM private_chat_pairs WHERE chat_id=$1 AND (user_low_id=$2 OR user_high_id=$2))`, chatID, userID)
	return exists, err
}

// ListUserChats returns the private and group chats of a user, most recently active first.
func (r *ChatRepo) ListUserChats(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.ChatSummary, error) {
	query := `SELECT c.id, c.name, c.kind, lm.last_message_at FROM chats c
        LEFT JOIN LATERAL (SELECT MAX(m.created_at) AS last_message_at FROM messages m WHERE m.chat_id = c.id) lm ON TRUE
        WHERE c.id IN (
            SELECT p.chat_id FROM private_chat_pairs p WHERE p.user_low_id=$1 OR p.user_high_id=$1
            UNION
            SELECT g.chat_id FROM groups g INNER JOIN group_members gm ON gm.group_id = g.id WHERE gm.user_id=$1
        )
        ORDER BY lm.last_message_at DESC NULLS LAST, c.created_at DESC
        OFFSET $2 LIMIT $3`
	chats := []models.ChatSummary{}
	err := r.db.SelectContext(ctx, &chats, query, userID, page.Offset, page.Limit)
	return chats, err
}
