package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

const maxFrameSize = 64 << 10

// errHandlerPanic ends a session whose event handler panicked. Other
// sessions and the process are unaffected.
var errHandlerPanic = errors.New("event handler panicked")

// SessionState tracks a connection from handshake to teardown.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// HandlerFunc handles one inbound event for an authenticated identity.
type HandlerFunc func(ctx context.Context, env models.Envelope, identity auth.Identity) error

// Handlers maps inbound event types to their handler. It is built once at
// startup and shared read-only by every session.
type Handlers map[models.EventType]HandlerFunc

// readConn is the part of *websocket.Conn the read loop needs.
type readConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// Session runs the inbound side of one socket. Frames are handled strictly
// in arrival order; a failing frame is logged and the loop moves on.
type Session struct {
	info     ConnInfo
	identity auth.Identity
	conn     readConn
	client   *Client
	handlers Handlers
	logger   *zap.Logger
	onClose  func(err error)

	state   atomic.Int32
	cleanup sync.Once
}

func newSession(info ConnInfo, identity auth.Identity, conn readConn, client *Client, handlers Handlers, logger *zap.Logger, onClose func(error)) *Session {
	s := &Session{
		info:     info,
		identity: identity,
		conn:     conn,
		client:   client,
		handlers: handlers,
		logger:   logger,
		onClose:  onClose,
	}
	s.state.Store(int32(StateAuthenticated))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run reads frames until the transport fails or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	var readErr error
	defer func() { s.close(readErr) }()

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	s.state.Store(int32(StateActive))

	for ctx.Err() == nil {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}
		if err := s.dispatch(ctx, frame); err != nil {
			readErr = err
			return
		}
	}
}

// dispatch decodes one frame and runs its handler. Bad frames and handler
// errors are logged and skipped; only a handler panic is returned.
func (s *Session) dispatch(ctx context.Context, frame []byte) error {
	env, err := models.DecodeEnvelope(frame)
	if err != nil {
		observability.IncWSEvent(s.info.Kind, "malformed")
		s.logger.Warn("malformed frame", zap.Error(err))
		return nil
	}

	handler, ok := s.handlers[env.Type]
	if !ok {
		observability.IncWSEvent(s.info.Kind, "unknown")
		s.logger.Warn("unknown event type", zap.String("type", string(env.Type)))
		return nil
	}

	observability.IncWSEvent(s.info.Kind, string(env.Type))
	err = s.invoke(ctx, handler, env)
	if errors.Is(err, errHandlerPanic) {
		return err
	}
	if err != nil {
		s.logger.Warn("event handler failed", zap.String("type", string(env.Type)), zap.Error(err))
	}
	return nil
}

func (s *Session) invoke(ctx context.Context, handler HandlerFunc, env models.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			observability.IncWSEvent(s.info.Kind, "handler_panic")
			s.logger.Error("event handler panicked",
				zap.String("type", string(env.Type)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w: %s", errHandlerPanic, env.Type)
		}
	}()
	return handler(ctx, env, s.identity)
}

func (s *Session) close(err error) {
	s.cleanup.Do(func() {
		s.state.Store(int32(StateClosed))
		if s.onClose != nil {
			s.onClose(err)
		}
		if errors.Is(err, errHandlerPanic) {
			s.client.closeWith(websocket.CloseInternalServerErr)
			return
		}
		_ = s.client.Close()
	})
}

// isAbnormalClose reports whether a read error is worth a ws_error event.
func isAbnormalClose(err error) bool {
	return err != nil && !websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
