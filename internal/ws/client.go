package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 1 << 20
)

var (
	ErrClientClosed = errors.New("ws: client closed")
	ErrQueueFull    = errors.New("ws: send queue full")
)

// BaseClient owns one websocket connection and its outbound queue. Exactly
// one goroutine must run WritePump; all writes go through Push, which stays
// safe against a concurrent Close.
type BaseClient struct {
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewBaseClient(conn *websocket.Conn) *BaseClient {
	return &BaseClient{
		Conn: conn,
		Send: make(chan []byte, 256),
	}
}

// Push queues a frame for WritePump without ever blocking the caller.
func (c *BaseClient) Push(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops new pushes, then closes the send channel so WritePump winds
// down with a close frame. Idempotent; the flag flips before the channel
// closes so no Push can race the close.
func (c *BaseClient) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.Send)
	})
}

func (c *BaseClient) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *BaseClient) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.Conn.WriteMessage(messageType, data)
}
