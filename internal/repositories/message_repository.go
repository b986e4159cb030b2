package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// MessageRepository defines interactions for messages and read receipts.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	ExistsSimilar(ctx context.Context, chatID, senderID uuid.UUID, text string, from, to time.Time) (bool, error)
	GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error)
	ListChatMessages(ctx context.Context, chatID uuid.UUID, page models.Page) ([]models.MessageView, error)
	RecordRead(ctx context.Context, messageID, readerID uuid.UUID, readAt time.Time) (bool, []uuid.UUID, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, chat_id, sender_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Text, msg.Timestamp)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ExistsSimilar reports whether the sender already posted the same text to the chat
// with a timestamp in [from, to].
func (r *MessageRepo) ExistsSimilar(ctx context.Context, chatID, senderID uuid.UUID, text string, from, to time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM messages
        WHERE chat_id=$1 AND sender_id=$2 AND text=$3 AND created_at BETWEEN $4 AND $5)`,
		chatID, senderID, text, from, to)
	return exists, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID uuid.UUID) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, chat_id, sender_id, text, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ListChatMessages returns a page of history, oldest first. read_by_all is
// computed from receipts: any non-sender reader for private chats, every
// current member (sender excluded) for group chats.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID uuid.UUID, page models.Page) ([]models.MessageView, error) {
	query := `SELECT m.id, m.chat_id, m.sender_id, u.name AS sender_name, m.text, m.created_at,
        CASE WHEN c.kind = 'private' THEN EXISTS (
            SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id <> m.sender_id)
        ELSE NOT EXISTS (
            SELECT 1 FROM groups g INNER JOIN group_members gm ON gm.group_id = g.id
            WHERE g.chat_id = m.chat_id AND gm.user_id <> m.sender_id
            AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = gm.user_id))
        END AS read_by_all
        FROM messages m
        INNER JOIN chats c ON c.id = m.chat_id
        INNER JOIN users u ON u.id = m.sender_id
        WHERE m.chat_id=$1
        ORDER BY m.created_at ASC, m.id ASC
        OFFSET $2 LIMIT $3`
	msgs := []models.MessageView{}
	err := r.db.SelectContext(ctx, &msgs, query, chatID, page.Offset, page.Limit)
	return msgs, err
}

// RecordRead inserts the receipt for (messageID, readerID) and returns whether it
// was new along with every reader of the message. The message row is locked for
// the duration so concurrent readers of one message observe each other in order.
func (r *MessageRepo) RecordRead(ctx context.Context, messageID, readerID uuid.UUID, readAt time.Time) (bool, []uuid.UUID, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback()

	var locked uuid.UUID
	err = tx.GetContext(ctx, &locked, `SELECT id FROM messages WHERE id=$1 FOR UPDATE`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, ErrMessageNotFound
	}
	if err != nil {
		return false, nil, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO message_reads (message_id, user_id, read_at) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id) DO NOTHING`, messageID, readerID, readAt)
	if err != nil {
		return false, nil, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, nil, err
	}
	if inserted == 0 {
		return false, nil, nil
	}

	readers := []uuid.UUID{}
	if err := tx.SelectContext(ctx, &readers, `SELECT user_id FROM message_reads WHERE message_id=$1`, messageID); err != nil {
		return false, nil, err
	}

	if err := tx.Commit(); err != nil {
		return false, nil, err
	}
	return true, readers, nil
}
