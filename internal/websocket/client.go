package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // inbound frames carry whole report requests
)

// Conn is the subset of *websocket.Conn the session layer uses; tests
// substitute their own implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Client owns the outbound side of one connection: a FIFO queue drained by a
// dedicated write pump, so events are delivered in enqueue order no matter
// when they were produced.
type Client struct {
	Conn Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(conn Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Client{
		Conn: conn,
		Send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// Enqueue appends one outbound message. When the queue is full the client
// has stopped reading; the connection is dropped rather than blocking a
// report run.
func (c *Client) Enqueue(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- message:
		return true
	default:
		c.Shutdown()
		return false
	}
}

// Shutdown stops the write pump and closes the connection. Safe to call
// multiple times and from any goroutine.
func (c *Client) Shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}

// WritePump drains the send queue onto the connection in FIFO order until
// shutdown or a transport failure. A transport failure terminates only this
// connection. Runs as the sole writer goroutine for the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Shutdown()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			// Liveness convention: a queued "ping" payload is
			// answered with literal "pong", never treated as data.
			if string(message) == "ping" {
				message = []byte("pong")
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
