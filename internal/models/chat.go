package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatKind distinguishes two-party chats from group-backed chats.
type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatPublic  ChatKind = "public"
)

// Chat is a conversation. Public chats are backed by exactly one Group.
type Chat struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Kind      ChatKind  `db:"kind" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsPrivate reports whether the chat is a two-party chat.
func (c Chat) IsPrivate() bool {
	return c.Kind == ChatPrivate
}

// ChatSummary provides an API-friendly view of a chat for listing.
type ChatSummary struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Kind                 ChatKind   `db:"kind" json:"type"`
	LastMessageTimestamp *time.Time `db:"last_message_at" json:"last_message_timestamp,omitempty"`
}
