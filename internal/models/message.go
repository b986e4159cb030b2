package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat message.
type Message struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ChatID    uuid.UUID `db:"chat_id" json:"chat_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Text      string    `db:"text" json:"text"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// MessageView is a history row. ReadByAll is derived from receipts at query time.
type MessageView struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ChatID     uuid.UUID `db:"chat_id" json:"chat_id"`
	SenderID   uuid.UUID `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	Text       string    `db:"text" json:"text"`
	Timestamp  time.Time `db:"created_at" json:"timestamp"`
	ReadByAll  bool      `db:"read_by_all" json:"read_by_all"`
}

// ReadReceipt records that a reader has seen a message. At most one per pair.
type ReadReceipt struct {
	MessageID uuid.UUID `db:"message_id" json:"message_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}
