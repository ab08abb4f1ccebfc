// Package transport maintains the websocket connection to the dispatch gateway.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single frame write so a stalled peer cannot block
// the sender indefinitely.
const writeTimeout = 10 * time.Second

// Conn is a live connection to the gateway. Inbound frames arrive on a
// channel that closes when the connection dies; Send must only be called
// from a single goroutine.
type Conn interface {
	// Inbound returns the channel of raw inbound frames. It is closed when
	// the transport drops, whatever the cause.
	Inbound() <-chan json.RawMessage

	// Send writes one JSON frame. Best-effort: an error means the frame was
	// not delivered, not that the connection is unusable.
	Send(v any) error

	// Close tears down the connection. Idempotent.
	Close() error
}

// Dialer opens gateway connections. The production implementation is
// WebsocketDialer; tests substitute mocks.
type Dialer interface {
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// WebsocketDialer dials the gateway over a websocket, authenticating the
// handshake with a bearer token.
type WebsocketDialer struct{}

// Dial opens the websocket and starts the read pump.
func (WebsocketDialer) Dial(ctx context.Context, url, token string) (Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}

	c := &wsConn{
		ws:      ws,
		inbound: make(chan json.RawMessage, 100),
		done:    make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

// wsConn wraps a gorilla websocket connection.
type wsConn struct {
	ws      *websocket.Conn
	inbound chan json.RawMessage
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) Inbound() <-chan json.RawMessage {
	return c.inbound
}

func (c *wsConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("transport: send on closed connection")
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return c.ws.Close()
}

// readPump delivers inbound frames until the connection drops, then closes
// the inbound channel. Frames are delivered in arrival order. The done
// channel unblocks delivery when the consumer abandons a full buffer, so
// Close always lets the pump exit.
func (c *wsConn) readPump() {
	defer close(c.inbound)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.Close()
			return
		}
		select {
		case c.inbound <- json.RawMessage(data):
		case <-c.done:
			return
		}
	}
}
