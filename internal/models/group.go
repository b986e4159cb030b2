package models

import (
	"time"

	"github.com/google/uuid"
)

// Group owns the membership of a public chat.
type Group struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   uuid.UUID `db:"owner_id" json:"owner_id"`
	ChatID    uuid.UUID `db:"chat_id" json:"chat_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Member is a group member row joined with the member's identity.
type Member struct {
	UserID   uuid.UUID `db:"user_id" json:"id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
