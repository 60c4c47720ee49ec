package transport

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/metrics"
	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/nordcall/signalcore/internal/registry"
	"github.com/nordcall/signalcore/internal/relay"
)

type inboundEnvelope struct {
	client   *Client
	envelope *protocol.Envelope
}

// Hub is the single-goroutine actor owning live socket lookups, generalizing
// the teacher's backend/internal/signaling.Hub from a 1:1 sender/receiver
// room to the flat multi-member Room Registry. Every mutating Registry call
// and every relay call happens on this one goroutine (the HTTP room listing
// reads the Registry from its own goroutines); only the resulting Deliveries cross to
// other goroutines, over each Client's buffered Send channel.
type Hub struct {
	registry *registry.Registry

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEnvelope

	clients map[ids.SocketId]*Client
}

func NewHub(reg *registry.Registry) *Hub {
	return &Hub{
		registry:   reg,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEnvelope, 256),
		clients:    make(map[ids.SocketId]*Client),
	}
}

// Accept registers conn with the hub and starts its read/write pumps. It
// returns immediately; the pumps run until the connection closes.
func (h *Hub) Accept(conn *websocket.Conn, pingInterval, pingTimeout time.Duration) {
	c := newClient(h, conn, pingInterval, pingTimeout)
	h.register <- c
	go c.WritePump()
	go c.ReadPump()
}

// Run is the hub's event loop. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c.Socket] = c
			metrics.ActiveWebSocketConnections.Inc()

		case c := <-h.unregister:
			h.handleDisconnect(c)

		case in := <-h.inbound:
			h.dispatch(in)
		}
	}
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.Socket]; !ok {
		return
	}
	delete(h.clients, c.Socket)
	close(c.Send)
	metrics.ActiveWebSocketConnections.Dec()

	h.deliver(h.registry.Disconnect(c.Socket))
	metrics.ActiveRooms.Set(float64(len(h.registry.RoomIds())))
}

func (h *Hub) dispatch(in inboundEnvelope) {
	env := in.envelope
	outcome := "ok"
	defer func() {
		metrics.EventsProcessed.WithLabelValues(env.Event, outcome).Inc()
	}()

	switch env.Event {
	case protocol.EventJoinRoom:
		var p protocol.JoinRoomPayload
		if err := protocol.Decode(env, &p); err != nil {
			slog.Warn("malformed join-room payload", "socket", in.client.Socket, "error", err)
			outcome = "malformed"
			return
		}
		h.deliver(h.registry.Join(p.RoomId, p.UserId, p.Nickname, in.client.Socket))
		metrics.RoomParticipants.WithLabelValues(string(p.RoomId)).Set(float64(len(h.registry.RoomMembers(p.RoomId))))
		metrics.ActiveRooms.Set(float64(len(h.registry.RoomIds())))

	case protocol.EventLeaveRoom:
		var p protocol.LeaveRoomPayload
		if err := protocol.Decode(env, &p); err != nil {
			slog.Warn("malformed leave-room payload", "socket", in.client.Socket, "error", err)
			outcome = "malformed"
			return
		}
		h.deliver(h.registry.Leave(p.RoomId, p.UserId, in.client.Socket))
		metrics.ActiveRooms.Set(float64(len(h.registry.RoomIds())))

	case protocol.EventRequestParticipants:
		var p protocol.RequestParticipantsPayload
		if err := protocol.Decode(env, &p); err != nil {
			slog.Warn("malformed request-participants payload", "socket", in.client.Socket, "error", err)
			outcome = "malformed"
			return
		}
		h.deliver(h.registry.RequestMembers(p.RoomId, in.client.Socket))

	case protocol.EventSignal:
		var p protocol.SignalPayload
		if err := protocol.Decode(env, &p); err != nil {
			slog.Warn("malformed signal payload", "socket", in.client.Socket, "error", err)
			outcome = "malformed"
			return
		}
		d, err := relay.RouteSignal(h.registry, p)
		if err != nil {
			metrics.SignalsDropped.WithLabelValues("unknown-target").Inc()
			outcome = "dropped"
			return
		}
		h.deliver([]registry.Delivery{*d})

	case protocol.EventChatMessage:
		var p protocol.ChatMessagePayload
		if err := protocol.Decode(env, &p); err != nil {
			slog.Warn("malformed chat-message payload", "socket", in.client.Socket, "error", err)
			outcome = "malformed"
			return
		}
		deliveries, err := relay.RelayChat(h.registry, p.RoomId, in.client.Socket, p)
		if err != nil {
			slog.Warn("chat-message for unknown room", "socket", in.client.Socket, "room", p.RoomId)
			outcome = "dropped"
			return
		}
		h.deliver(deliveries)

	default:
		slog.Warn("unrecognized event", "socket", in.client.Socket, "event", env.Event)
		outcome = "unrecognized"
	}
}

// deliver writes each Delivery's envelope to its target socket's Send
// channel, skipping sockets that disconnected between the registry call and
// this point. Lock-free: this always runs on the hub goroutine, after every
// Registry/relay call has already released its own locks.
func (h *Hub) deliver(deliveries []registry.Delivery) {
	for _, d := range deliveries {
		c, ok := h.clients[d.Socket]
		if !ok {
			continue
		}
		select {
		case c.Send <- d.Envelope:
		default:
			slog.Warn("dropping envelope for slow client", "socket", d.Socket, "event", d.Envelope.Event)
		}
	}
}
