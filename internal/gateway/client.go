package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/studyroom/internal/model"
)

// Buffer size for outgoing messages
const sendBufferSize = 256

// Client is one live connection. participantID and roomID are only read and
// written from the gateway loop.
type Client struct {
	id          model.ConnectionID
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
	closeOnce   sync.Once

	participantID model.ParticipantID
	roomID        model.RoomID
}

// NewClient creates a Client for a connection. conn may be nil when the
// caller drains Messages itself.
func NewClient(id model.ConnectionID, conn *websocket.Conn) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ID returns the connection identifier
func (c *Client) ID() model.ConnectionID {
	return c.id
}

// Messages returns the outbound queue. It is closed when the gateway drops the client.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// enqueue queues a frame without blocking and reports whether it was accepted
func (c *Client) enqueue(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
