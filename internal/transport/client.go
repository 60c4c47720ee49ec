// Package transport wires the Room Registry and the signal/chat relay to a
// gorilla/websocket connection per spec.md §6's framed, heartbeating,
// reconnecting channel. It is the dynamic-dispatch boundary the design notes
// call for: Client.ReadPump only ever produces typed protocol.Envelope
// values, never raw bytes, past this package.
package transport

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/protocol"
)

const maxMessageSize = 64 * 1024

// Client wraps one accepted WebSocket connection. Grounded on the teacher's
// backend/internal/signaling.Client split between ReadPump and WritePump.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	Socket ids.SocketId

	// Send is a buffered outbound channel; the hub writes here and never
	// touches conn directly, so a slow reader can't block the hub's loop.
	Send chan *protocol.Envelope

	pingInterval time.Duration
	pingTimeout  time.Duration
}

func newClient(hub *Hub, conn *websocket.Conn, pingInterval, pingTimeout time.Duration) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		Socket:       ids.NewSocketId(),
		Send:         make(chan *protocol.Envelope, 256),
		pingInterval: pingInterval,
		pingTimeout:  pingTimeout,
	}
}

// ReadPump pumps envelopes from the socket into the hub's inbound channel.
// The caller must run this in its own goroutine; it returns (and
// unregisters the client) when the connection closes or a heartbeat is
// missed.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pingTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pingTimeout))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "socket", c.Socket, "error", err)
			}
			return
		}
		c.hub.inbound <- inboundEnvelope{client: c, envelope: &env}
	}
}

// WritePump pumps envelopes from Send to the socket and sends periodic
// pings on the heartbeat interval named in spec.md §6.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				slog.Warn("websocket write error", "socket", c.Socket, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
