package observability

import (
	"context"

	"go.uber.org/zap"
)

// Publisher is the outbound event bus.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, message any, headers map[string]string) error
}

// EventBus publishes service events. Failures are counted and logged, never
// returned: the bus is best-effort and must not fail a request.
type EventBus struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewEventBus wraps publisher. A nil publisher disables publishing.
func NewEventBus(publisher Publisher, logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{publisher: publisher, logger: logger}
}

func (b *EventBus) Publish(ctx context.Context, routingKey string, event EventEnvelope, headers map[string]string) {
	if b == nil || b.publisher == nil {
		return
	}
	if err := b.publisher.PublishJSON(ctx, routingKey, event, headers); err != nil {
		IncAMQPPublishError()
		b.logger.Warn("event publish failed",
			zap.String("routing_key", routingKey),
			zap.String("event_name", event.EventName),
			zap.Error(err),
		)
	}
}
