package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

const (
	KindChat          = "chat"
	KindNotifications = "notifications"
)

// TokenVerifier authenticates the handshake token.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// ChatAccess resolves a chat and whether a user may join it.
type ChatAccess interface {
	GetByID(ctx context.Context, chatID uuid.UUID) (models.Chat, error)
	HasAccess(ctx context.Context, chat models.Chat, userID uuid.UUID) (bool, error)
}

// Gateway holds what both socket endpoints share.
type Gateway struct {
	Tokens       TokenVerifier
	Handlers     Handlers
	Events       *observability.EventBus
	Logger       *zap.Logger
	QueueSize    int
	WriteTimeout time.Duration
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// tokenFromRequest reads "Authorization: Bearer <token>", falling back to ?token=.
func tokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return r.URL.Query().Get("token")
}

// handshake is the per-connection state built during upgrade.
type handshake struct {
	ctx      context.Context
	span     trace.Span
	kind     string
	resource uuid.UUID
	identity auth.Identity
	authErr  error
}

func (g *Gateway) beginHandshake(c *gin.Context, kind string, resource uuid.UUID) *handshake {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithAttributes(attribute.String("ws.kind", kind)))
	c.Request = c.Request.WithContext(ctx)

	identity, err := g.Tokens.Verify(tokenFromRequest(c.Request))
	if err == nil {
		span.SetAttributes(attribute.String("user.id", identity.UserID.String()))
	}
	return &handshake{ctx: ctx, span: span, kind: kind, resource: resource, identity: identity, authErr: err}
}

// reject closes an upgraded socket with a policy-violation frame.
func (g *Gateway) reject(hs *handshake, conn *websocket.Conn, reason string) {
	hs.span.SetStatus(codes.Error, reason)
	observability.IncWSEvent(hs.kind, "ws_rejected")
	g.Logger.Info("websocket rejected",
		zap.String("kind", hs.kind),
		zap.Stringer("resource_id", hs.resource),
		zap.String("reason", reason),
	)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(g.WriteTimeout))
	_ = conn.Close()
}

// start builds the client and session for an accepted connection, records
// the connect and launches the read loop. register and deregister bind the
// client into the endpoint's registry.
func (g *Gateway) start(c *gin.Context, hs *handshake, conn *websocket.Conn, register func(*Client), deregister func(*Client) bool) *Session {
	meta := observability.RequestMetaFrom(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Kind:        hs.kind,
		UserID:      hs.identity.UserID,
		ChatID:      hs.resource,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     hs.span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	logger := g.Logger.With(
		zap.String("conn_id", info.ConnID),
		zap.String("kind", info.Kind),
		zap.Stringer("user_id", info.UserID),
	)
	if hs.kind == KindChat {
		logger = logger.With(zap.Stringer("chat_id", info.ChatID))
	}

	client := NewClient(conn, info, g.QueueSize, g.WriteTimeout)
	register(client)

	observability.IncWSActive(info.Kind)
	observability.IncWSEvent(info.Kind, "ws_connect")
	g.publishLifecycle(hs.ctx, info, "ws_connect", "")
	logger.Info("websocket connected")

	// the request context ends when the handler returns; the session outlives it
	sessionCtx := context.WithoutCancel(hs.ctx)
	session := newSession(info, hs.identity, conn, client, g.Handlers, logger, func(err error) {
		deregister(client)
		observability.DecWSActive(info.Kind)

		reason := ""
		if err != nil {
			reason = err.Error()
		}
		if isAbnormalClose(err) {
			observability.IncWSEvent(info.Kind, "ws_error")
			g.publishLifecycle(sessionCtx, info, "ws_error", reason)
		}
		observability.IncWSEvent(info.Kind, "ws_disconnect")
		g.publishLifecycle(sessionCtx, info, "ws_disconnect", reason)
		logger.Info("websocket disconnected", zap.String("reason", reason))
	})
	go session.Run(sessionCtx)
	return session
}

func (g *Gateway) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	routingKey := observability.RoutingWSChats
	if info.Kind == KindNotifications {
		routingKey = observability.RoutingWSNotifications
	}

	var durationMS int64
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}

	g.Events.Publish(ctx, routingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        info.Kind,
				"resource_id": info.ChatID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
