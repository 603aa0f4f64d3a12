package chat

import (
	"sync"
	"time"

	"ChatBuddy/logger"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize    = 64
	writeDeadlineSec = 5
	pingEvery        = 30 * time.Second
)

// transport is the write side of a websocket; *websocket.Conn satisfies it.
// Narrowed so tests can capture outbound frames without a real socket.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one live client connection: an immutable id plus the socket and its
// outbound queue. Mutable session state (user binding, room membership) lives
// in the Manager and RoomManager, never on the Conn itself.
type Conn struct {
	ID string

	ws   transport
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, ws transport) *Conn {
	return &Conn{
		ID:   id,
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// writePump is the single writer goroutine for this connection. It also keeps
// the protocol-level ping alive; the peer's pong renews the read deadline on
// the gateway side.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.writeFrame(websocket.TextMessage, payload); err != nil {
				logger.Debug("conn write failed: " + err.Error())
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.writeFrame(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Conn) writeFrame(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeDeadlineSec * time.Second)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

// Send queues one frame, dropping it if the client is too slow to drain its
// queue. Delivery is best effort end to end, so a drop here is not an error.
func (c *Conn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		logger.Warnf("[conn] send queue full, dropping frame conn=%s", c.ID)
		return false
	}
}

// SendEvent encodes and queues a named event.
func (c *Conn) SendEvent(name string, data any) bool {
	b, err := EncodeEvent(name, data)
	if err != nil {
		logger.Errorf("[conn] encode event %s: %v", name, err)
		return false
	}
	return c.Send(b)
}

// Close shuts the socket and stops the writer. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.ws.Close(); err != nil {
			logger.Debug("conn close: " + err.Error())
		}
	})
}
