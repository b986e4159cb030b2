package observability

// Routing keys on the events exchange.
const (
	RoutingWSChats         = "ws_events.chats"
	RoutingWSNotifications = "ws_events.notifications"
	RoutingMessages        = "message_events"
	RoutingAudit           = "audit_log"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
