package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo identifies a connection in logs and lifecycle events.
type ConnInfo struct {
	ConnID      string
	Kind        string
	UserID      uuid.UUID
	ChatID      uuid.UUID
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
