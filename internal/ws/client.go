package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrQueueFull    = errors.New("outbound queue full")
	ErrClientClosed = errors.New("client closed")
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsConn is the part of *websocket.Conn the write side needs.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client owns the outbound side of one socket: a bounded queue drained by a
// single writer goroutine. A full queue closes the client.
type Client struct {
	info         ConnInfo
	conn         wsConn
	send         chan []byte
	done         chan struct{}
	stopped      chan struct{}
	writeTimeout time.Duration

	closeOnce sync.Once
	closeCode int
}

// NewClient starts the write pump for conn.
func NewClient(conn wsConn, info ConnInfo, queueSize int, writeTimeout time.Duration) *Client {
	c := &Client{
		info:         info,
		conn:         conn,
		send:         make(chan []byte, queueSize),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		writeTimeout: writeTimeout,
		closeCode:    websocket.CloseNormalClosure,
	}
	go c.writePump()
	return c
}

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo {
	return c.info
}

// Send enqueues payload without blocking.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		c.closeWith(websocket.CloseTryAgainLater)
		return ErrQueueFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket.
func (c *Client) Close() error {
	c.closeWith(websocket.CloseNormalClosure)
	return nil
}

// Done is closed once the socket has been closed by the write pump.
func (c *Client) Done() <-chan struct{} {
	return c.stopped
}

func (c *Client) closeWith(code int) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		close(c.done)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.stopped)
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure)
				return
			}
		case <-c.done:
			if c.closeCode != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(c.closeCode, "")
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
			}
			return
		}
	}
}
