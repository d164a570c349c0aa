// Package client is a Go websocket client for the live Q&A transport. It is
// used by cmd/watch and by integration tests.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"liveqa/internal/qa"
	"liveqa/internal/wire"
)

const writeWait = 10 * time.Second

// Client is one socket connection. Decoded server events arrive on Events;
// frames that do not decode are logged and skipped.
type Client struct {
	conn   *websocket.Conn
	log    *slog.Logger
	events chan wire.Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to a /ws endpoint, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	c := &Client{
		conn:   conn,
		log:    log,
		events: make(chan wire.Event, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events is closed when the connection ends.
func (c *Client) Events() <-chan wire.Event {
	return c.events
}

// Join enters an event room with the given identity.
func (c *Client) Join(eventID string, id qa.Identity) error {
	return c.send(wire.Join{EventID: eventID, UserID: id.UserID, SessionID: id.SessionID})
}

// Leave exits an event room.
func (c *Client) Leave(eventID string) error {
	return c.send(wire.Leave{EventID: eventID})
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(e wire.Event) error {
	frame, err := wire.Encode(e)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("client: send %s: %w", e.Kind(), err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Debug("client: read ended", "error", err)
			}
			return
		}
		e, err := wire.Decode(data)
		if err != nil {
			c.log.Warn("client: skipping frame", "error", err)
			continue
		}
		select {
		case c.events <- e:
		case <-c.done:
			return
		}
	}
}
