package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/nordcall/signalcore/internal/registry"
)

// testClient builds a Client with no backing connection, suitable for
// feeding directly into Hub.dispatch/deliver in-process.
func testClient(h *Hub) *Client {
	return &Client{
		hub:    h,
		Socket: ids.NewSocketId(),
		Send:   make(chan *protocol.Envelope, 16),
	}
}

func mustEnvelope(t *testing.T, event string, payload any) *protocol.Envelope {
	t.Helper()
	env, err := protocol.Encode(event, payload)
	require.NoError(t, err)
	return env
}

func recvEvent(t *testing.T, ch chan *protocol.Envelope) *protocol.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return nil
	}
}

func TestHub_JoinThenSignal(t *testing.T) {
	h := NewHub(registry.New())
	a := testClient(h)
	b := testClient(h)
	h.clients[a.Socket] = a
	h.clients[b.Socket] = b

	h.dispatch(inboundEnvelope{client: a, envelope: mustEnvelope(t, protocol.EventJoinRoom, protocol.JoinRoomPayload{
		RoomId: "room1", UserId: "u-a", Nickname: "Alice",
	})})
	assert.Equal(t, protocol.EventExistingParticipants, recvEvent(t, a.Send).Event)
	assert.Equal(t, protocol.EventParticipantCount, recvEvent(t, a.Send).Event)

	h.dispatch(inboundEnvelope{client: b, envelope: mustEnvelope(t, protocol.EventJoinRoom, protocol.JoinRoomPayload{
		RoomId: "room1", UserId: "u-b", Nickname: "Bob",
	})})
	assert.Equal(t, protocol.EventExistingParticipants, recvEvent(t, b.Send).Event)
	assert.Equal(t, protocol.EventUserJoined, recvEvent(t, a.Send).Event)
	assert.Equal(t, protocol.EventParticipantCount, recvEvent(t, a.Send).Event)
	assert.Equal(t, protocol.EventParticipantCount, recvEvent(t, b.Send).Event)

	raw := json.RawMessage(`{"type":"offer"}`)
	h.dispatch(inboundEnvelope{client: b, envelope: mustEnvelope(t, protocol.EventSignal, protocol.SignalPayload{
		To: "u-a", From: "u-b", Signal: raw,
	})})

	got := recvEvent(t, a.Send)
	assert.Equal(t, protocol.EventSignal, got.Event)
	var p protocol.InboundSignalPayload
	require.NoError(t, protocol.Decode(got, &p))
	assert.Equal(t, ids.UserId("u-b"), p.From)
}

func TestHub_Disconnect_NotifiesRemainingMembers(t *testing.T) {
	h := NewHub(registry.New())
	a := testClient(h)
	b := testClient(h)
	h.clients[a.Socket] = a
	h.clients[b.Socket] = b

	h.dispatch(inboundEnvelope{client: a, envelope: mustEnvelope(t, protocol.EventJoinRoom, protocol.JoinRoomPayload{
		RoomId: "room1", UserId: "u-a", Nickname: "Alice",
	})})
	<-a.Send
	<-a.Send

	h.dispatch(inboundEnvelope{client: b, envelope: mustEnvelope(t, protocol.EventJoinRoom, protocol.JoinRoomPayload{
		RoomId: "room1", UserId: "u-b", Nickname: "Bob",
	})})
	<-b.Send
	<-a.Send
	<-a.Send
	<-b.Send

	h.handleDisconnect(b)

	got := recvEvent(t, a.Send)
	assert.Equal(t, protocol.EventUserLeft, got.Event)
	_, stillRegistered := h.clients[b.Socket]
	assert.False(t, stillRegistered)
}

func TestHub_UnknownEvent_NoCrash(t *testing.T) {
	h := NewHub(registry.New())
	a := testClient(h)
	h.clients[a.Socket] = a

	h.dispatch(inboundEnvelope{client: a, envelope: &protocol.Envelope{Event: "not-a-real-event"}})
	assert.Empty(t, a.Send)
}
