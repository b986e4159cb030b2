package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tags the payload carried by an Envelope.
type EventType string

const (
	EventRead             EventType = "read"
	EventTyping           EventType = "typing"
	EventNewMessage       EventType = "new_message"
	EventMessageRead      EventType = "message_read"
	EventMessageReadByAll EventType = "message_read_by_all"
	EventChatCreated      EventType = "chat_created"
	EventGroupUpdated     EventType = "group_updated"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is the frame exchanged over both websocket channels.
// Type determines the shape of Data.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope encodes payload under the given type.
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return Envelope{Type: t, Data: data}, nil
}

// MustEnvelope is NewEnvelope for payloads that always encode.
func MustEnvelope(t EventType, payload any) Envelope {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// DecodeEnvelope reads the tag of an inbound frame, leaving Data raw.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	return env, nil
}

// DecodePayload parses Data into the payload shape for the envelope's type.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("%w: %s has no data", ErrMalformedEnvelope, e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedEnvelope, e.Type, err)
	}
	return nil
}

// MessageReadRequest is sent by a client that has displayed a message.
type MessageReadRequest struct {
	MessageID uuid.UUID `json:"message_id"`
}

// TypingPayload is accepted on the wire but not broadcast.
type TypingPayload struct {
	ChatID   uuid.UUID `json:"chat_id"`
	IsTyping bool      `json:"is_typing"`
}

// NewMessagePayload is pushed to chat sockets.
type NewMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessageNotificationPayload is pushed to the recipient's notification socket.
type NewMessageNotificationPayload struct {
	ChatID     uuid.UUID `json:"chat_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
}

// MessageReadStatusPayload backs message_read and message_read_by_all.
type MessageReadStatusPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type ChatCreatedPayload struct {
	ChatID      uuid.UUID `json:"chat_id"`
	InviterName string    `json:"inviter_name"`
}

type GroupUpdatedPayload struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Owner   string    `json:"owner"`
	Inviter string    `json:"inviter"`
	ChatID  uuid.UUID `json:"chat_id"`
}
