package relay

import (
	"encoding/json"
	"testing"

	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/nordcall/signalcore/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteSignal_ForwardsByteIdenticalPayload(t *testing.T) {
	r := registry.New()
	r.Join("R", "u1", "A", "s1")
	r.Join("R", "u2", "B", "s2")

	raw := json.RawMessage(`{"type":"offer","sdp":"X"}`)
	delivery, err := RouteSignal(r, protocol.SignalPayload{To: "u1", From: "u2", Signal: raw})
	require.NoError(t, err)
	require.NotNil(t, delivery)
	assert.Equal(t, protocol.EventSignal, delivery.Envelope.Event)

	var got protocol.InboundSignalPayload
	require.NoError(t, protocol.Decode(delivery.Envelope, &got))
	assert.Equal(t, "u2", string(got.From))
	assert.JSONEq(t, string(raw), string(got.Signal))
}

func TestRouteSignal_UnknownTargetDropped(t *testing.T) {
	r := registry.New()
	_, err := RouteSignal(r, protocol.SignalPayload{To: "ghost", From: "u1", Signal: json.RawMessage(`{}`)})
	assert.Error(t, err)
}

func TestRelayChat_ExcludesSender(t *testing.T) {
	r := registry.New()
	r.Join("R", "u1", "A", "s1")
	r.Join("R", "u2", "B", "s2")
	r.Join("R", "u3", "C", "s3")

	deliveries, err := RelayChat(r, "R", "s1", protocol.ChatMessagePayload{
		Id: "m1", SenderId: "u1", SenderNickname: "A", Content: "hi", Timestamp: 1,
	})
	require.NoError(t, err)
	require.Len(t, deliveries, 2)

	sockets := map[string]bool{}
	for _, d := range deliveries {
		sockets[string(d.Socket)] = true
	}
	assert.False(t, sockets["s1"])
	assert.True(t, sockets["s2"])
	assert.True(t, sockets["s3"])
}
