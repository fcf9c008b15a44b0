package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/studyhub/collab-server/internal/collab/services"
)

// Client represents one connected websocket peer. It implements
// services.Conn so the presence registry can hand it to the relay.
type Client struct {
	Conn     *websocket.Conn
	SendChan chan []byte // Buffered for non-blocking sends

	mu     sync.RWMutex
	userID string
}

// NewClient wraps a raw websocket connection
func NewClient(conn *websocket.Conn, sendBuffer int) *Client {
	return &Client{
		Conn:     conn,
		SendChan: make(chan []byte, sendBuffer),
	}
}

// UserID returns the authenticated user, empty before user_online
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetUserID binds the connection to a user after user_online
func (c *Client) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// Send queues an event for the write pump. Returns false when the buffer is
// full and the event was dropped (slow client).
func (c *Client) Send(event services.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}

	select {
	case c.SendChan <- data:
		return true
	default:
		log.Printf("[WebSocket] send channel full for user %s, dropping %s", c.UserID(), event.Type)
		return false
	}
}
