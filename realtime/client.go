package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	maxInboundSize = 64 * 1024
	sendBuffer     = 32
)

// Client is one authenticated WebSocket connection. The write pump is the
// only goroutine that touches the conn for writes; everything outbound
// goes through the buffered send channel.
type Client struct {
	UserID string

	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func newClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// enqueue hands a frame to the write pump. A client whose buffer is full
// is a slow consumer and gets shut down rather than blocking delivery to
// everyone else. Enqueueing to an already closed client is a no-op.
func (c *Client) enqueue(payload []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- payload:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.shutdown()
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// inboundEvent is the envelope clients send us.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) readPump(g *Gateway) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxInboundSize)
	for {
		var inbound inboundEvent
		if err := c.conn.ReadJSON(&inbound); err != nil {
			return
		}
		g.dispatch(c, inbound)
	}
}
