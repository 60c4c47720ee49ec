// Package session is the client-side orchestrator: it owns the WebSocket
// connection to the signaling server, the Peer Connection Manager, one
// Negotiation Machine per remote peer, and the Track Router, and drives the
// reconnect-then-rejoin flow spec.md's external interfaces section implies
// but doesn't spell out as its own operation. Grounded on the teacher's
// cli/internal/signaling/{client.go,handler.go}, generalized from a single
// sender/receiver pairing to a many-member room.
package session

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nordcall/signalcore/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// wsClient manages the WebSocket connection to the signaling server and
// exposes it as typed envelope channels, the way the teacher's
// cli/internal/signaling.Client exposes *Message channels.
type wsClient struct {
	serverURL string

	conn *websocket.Conn

	incoming chan *protocol.Envelope
	outgoing chan *protocol.Envelope
	done     chan struct{}

	pingInterval time.Duration
	pingTimeout  time.Duration
}

func newWSClient(serverURL string, pingInterval, pingTimeout time.Duration) *wsClient {
	return &wsClient{
		serverURL:    serverURL,
		incoming:     make(chan *protocol.Envelope, 32),
		outgoing:     make(chan *protocol.Envelope, 32),
		done:         make(chan struct{}),
		pingInterval: pingInterval,
		pingTimeout:  pingTimeout,
	}
}

// Connect dials the server and starts the read/write pumps. The caller may
// call Connect again after Close to implement the reconnect policy.
func (c *wsClient) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial signaling server: %w", err)
	}
	c.conn = conn

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.pingTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.pingTimeout))
		return nil
	})

	c.incoming = make(chan *protocol.Envelope, 32)
	c.outgoing = make(chan *protocol.Envelope, 32)
	c.done = make(chan struct{})
	go c.readPump()
	go c.writePump()
	return nil
}

func (c *wsClient) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			slog.Debug("signaling read error", "error", err)
			return
		}
		select {
		case c.incoming <- &env:
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.outgoing:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				slog.Debug("signaling write error", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues env for delivery. Safe to call from any goroutine.
func (c *wsClient) Send(env *protocol.Envelope) {
	select {
	case c.outgoing <- env:
	case <-c.done:
	}
}

// Incoming returns the channel of envelopes received from the server. It
// closes when the connection drops.
func (c *wsClient) Incoming() <-chan *protocol.Envelope {
	return c.incoming
}

// Close tears down the connection. Safe to call once per Connect.
func (c *wsClient) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
