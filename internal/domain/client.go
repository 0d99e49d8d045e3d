package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type ClientStatus string

const (
	ClientStatusConnected    ClientStatus = "connected"
	ClientStatusDisconnected ClientStatus = "disconnected"
)

// Client represents a single live socket connection. The connection id is
// ephemeral: it exists only for the lifetime of the network session and is
// never persisted (the durable side lives in IdentityLink).
type Client struct {
	ID          string
	UserID      string
	Status      ClientStatus
	ConnectedAt time.Time
	Mutex       sync.RWMutex
	Socket      *websocket.Conn
	Events      chan Outbound
	closed      bool
}

func NewClient() *Client {
	return &Client{
		ID:          uuid.New().String(),
		Status:      ClientStatusConnected,
		ConnectedAt: time.Now().UTC(),
		Events:      make(chan Outbound, 64),
	}
}

// EnqueueEvent hands an event to the client's writer without blocking the
// caller. A full buffer means the consumer is too slow and the event is
// dropped. Enqueues after CloseEvents are dropped as well, so a broadcast
// racing a disconnect can never hit a closed channel.
func (c *Client) EnqueueEvent(event Outbound) bool {
	c.Mutex.RLock()
	defer c.Mutex.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}

// CloseEvents shuts the event channel down exactly once, letting the writer
// goroutine drain and exit.
func (c *Client) CloseEvents() {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Events)
	}
}

func (c *Client) SetUserID(userID string) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	c.UserID = userID
}

func (c *Client) GetUserID() string {
	c.Mutex.RLock()
	defer c.Mutex.RUnlock()
	return c.UserID
}

func (c *Client) SetStatus(status ClientStatus) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	c.Status = status
}
