package websocket

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn: inbound frames come from a channel, text
// writes are recorded in order.
type fakeConn struct {
	inbound chan []byte

	mu     sync.Mutex
	texts  []string
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return fiberws.TextMessage, data, nil
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	if messageType == fiberws.TextMessage {
		c.texts = append(c.texts, string(data))
	}
	return nil
}

func (c *fakeConn) SetReadDeadline(t time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetReadLimit(limit int64)            {}
func (c *fakeConn) SetPongHandler(h func(string) error) {}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) writtenTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.texts))
	copy(out, c.texts)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestClient_DeliversInFIFOOrder(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 64)

	var want []string
	for i := 0; i < 20; i++ {
		msg := fmt.Sprintf("event-%02d", i)
		want = append(want, msg)
		require.True(t, client.Enqueue([]byte(msg)))
	}

	go client.WritePump()
	waitFor(t, func() bool { return len(conn.writtenTexts()) == len(want) })
	client.Shutdown()

	assert.Equal(t, want, conn.writtenTexts())
}

func TestClient_PingPayloadAnsweredWithPong(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 8)

	require.True(t, client.Enqueue([]byte("ping")))

	go client.WritePump()
	waitFor(t, func() bool { return len(conn.writtenTexts()) == 1 })
	client.Shutdown()

	assert.Equal(t, []string{"pong"}, conn.writtenTexts())
}

func TestClient_OverflowDropsConnection(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 2)

	// No pump running: the queue fills and the next enqueue overflows.
	assert.True(t, client.Enqueue([]byte("a")))
	assert.True(t, client.Enqueue([]byte("b")))
	assert.False(t, client.Enqueue([]byte("c")))

	assert.True(t, conn.isClosed())
	assert.False(t, client.Enqueue([]byte("d")), "enqueue after shutdown must fail")
}

func TestClient_ShutdownIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	client := NewClient(conn, 2)

	client.Shutdown()
	client.Shutdown()
	assert.True(t, conn.isClosed())
}
