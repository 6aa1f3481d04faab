package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"retrosync/pkg/types"
)

// Client is a minimal WebSocket client: it sends commands, applies every
// broadcast to its SessionState, and exposes the raw event stream.
type Client struct {
	conn  *websocket.Conn
	state *SessionState

	events chan types.Event
	done   chan struct{}

	mu        sync.Mutex
	closeOnce sync.Once
}

// Dial connects to a server's /ws endpoint, e.g. "ws://host:port/ws".
func Dial(url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		state:  NewSessionState(),
		events: make(chan types.Event, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// State is the reconciliation store fed by the read loop.
func (c *Client) State() *SessionState {
	return c.state
}

// Events streams every received broadcast. The channel closes when the
// connection drops.
func (c *Client) Events() <-chan types.Event {
	return c.events
}

// Send issues a command to the server.
func (c *Client) Send(name string, payload any) error {
	event, err := types.NewEvent(name, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Join announces the user and enters the session's broadcast set.
func (c *Client) Join(sessionID, userID string) error {
	return c.Send(types.EventJoinSession, types.JoinSessionPayload{
		SessionID: sessionID,
		UserID:    userID,
	})
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var event types.Event
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		// Unknown events are ignored; older clients must tolerate newer
		// servers.
		_ = c.state.Apply(event)

		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}
