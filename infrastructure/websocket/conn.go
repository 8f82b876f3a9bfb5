package websocket

import (
	"chat-relay/errors"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const DefaultWriteTimeout = 5 * time.Second

// maxCloseReason is the room left for a reason in a close frame payload.
const maxCloseReason = 123

// Conn adapts a gorilla connection to contract.Connection.
// gorilla supports one concurrent writer, so data frames are serialized;
// close frames go through WriteControl which may run alongside them.
type Conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closed       atomic.Bool
	closeOnce    sync.Once
	closeErr     error

	mu          sync.Mutex
	attachments map[string]string
}

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: writeTimeout,
		attachments:  make(map[string]string),
	}
}

func (c *Conn) ID() string { return c.id }

// Send writes one text frame. It gives up once the write deadline or the
// context deadline, whichever is earlier, has passed.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	if c.closed.Load() {
		return errors.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrConnectionClosed, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrConnectionClosed, err)
	}
	return nil
}

// Close sends a close frame with code and reason then releases the socket.
// Only the first call has an effect.
func (c *Conn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		reason = truncateReason(reason)
		frame := websocket.FormatCloseMessage(code, reason)
		// A peer that is already gone cannot receive the frame
		_ = c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(c.writeTimeout))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *Conn) SetAttachment(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments[key] = value
}

func (c *Conn) Attachment(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.attachments[key]
	return value, ok
}

// truncateReason fits reason in a close frame without splitting a rune.
func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	cut := maxCloseReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
