package ws

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
)

// ReadMarker records read receipts.
type ReadMarker interface {
	MarkRead(ctx context.Context, messageID, readerID uuid.UUID) error
}

// ReadHandler handles "read" events by recording a receipt for the sender of the frame.
func ReadHandler(marker ReadMarker) HandlerFunc {
	return func(ctx context.Context, env models.Envelope, identity auth.Identity) error {
		var req models.MessageReadRequest
		if err := env.DecodePayload(&req); err != nil {
			return err
		}
		if req.MessageID == uuid.Nil {
			return fmt.Errorf("%w: read without message_id", models.ErrMalformedEnvelope)
		}
		return marker.MarkRead(ctx, req.MessageID, identity.UserID)
	}
}

// DefaultHandlers is the inbound handler registry used by both channels.
// typing is accepted on the wire but has no handler.
func DefaultHandlers(marker ReadMarker) Handlers {
	return Handlers{
		models.EventRead: ReadHandler(marker),
	}
}
