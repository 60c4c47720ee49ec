package registry

import (
	"testing"

	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsFor(deliveries []Delivery, socket ids.SocketId) []string {
	var out []string
	for _, d := range deliveries {
		if d.Socket == socket {
			out = append(out, d.Envelope.Event)
		}
	}
	return out
}

// Testable scenario 1: single-user join.
func TestJoin_SingleUser(t *testing.T) {
	r := New()
	deliveries := r.Join("R", "u1", "A", "s1")

	require.Len(t, deliveries, 2)
	assert.Equal(t, []string{protocol.EventExistingParticipants, protocol.EventParticipantCount}, eventsFor(deliveries, "s1"))

	members, ok := r.Room("R")
	require.True(t, ok)
	require.Len(t, members, 1)
	assert.Equal(t, Member{UserId: "u1", SocketId: "s1", Nickname: "A"}, members[0])
}

// Testable scenario 2: two-user session, userJoined fan-out.
func TestJoin_SecondUser_NotifiesFirst(t *testing.T) {
	r := New()
	r.Join("R", "u1", "A", "s1")
	deliveries := r.Join("R", "u2", "B", "s2")

	assert.Contains(t, eventsFor(deliveries, "s1"), protocol.EventUserJoined)
	assert.NotContains(t, eventsFor(deliveries, "s2"), protocol.EventUserJoined)
	assert.Contains(t, eventsFor(deliveries, "s2"), protocol.EventExistingParticipants)

	members, _ := r.Room("R")
	assert.Len(t, members, 2)
}

// Testable scenario 3: rejoin replaces in place and emits exactly one
// userRejoined to the other member.
func TestJoin_Rejoin_ReplacesInPlace(t *testing.T) {
	r := New()
	r.Join("R", "u1", "A", "s1")
	r.Join("R", "u2", "B", "s2")

	deliveries := r.Join("R", "u1", "A", "s1prime")

	rejoinedTo := 0
	for _, d := range deliveries {
		if d.Socket == "s2" && d.Envelope.Event == protocol.EventUserRejoined {
			rejoinedTo++
		}
	}
	assert.Equal(t, 1, rejoinedTo)

	members, _ := r.Room("R")
	require.Len(t, members, 2)
	assert.Equal(t, ids.UserId("u1"), members[0].UserId, "rejoin must keep original position")
	assert.Equal(t, ids.SocketId("s1prime"), members[0].SocketId)

	socket, ok := r.LookupSocket("u1")
	require.True(t, ok)
	assert.Equal(t, ids.SocketId("s1prime"), socket)
}

// Testable scenario 4: disconnect cleanup.
func TestDisconnect_RemovesMemberAndIndex(t *testing.T) {
	r := New()
	r.Join("R", "u1", "A", "s1")
	r.Join("R", "u2", "B", "s2")

	deliveries := r.Disconnect("s2")

	assert.Contains(t, eventsFor(deliveries, "s1"), protocol.EventUserLeft)
	assert.Contains(t, eventsFor(deliveries, "s1"), protocol.EventParticipantCount)

	_, ok := r.LookupSocket("u2")
	assert.False(t, ok)

	members, _ := r.Room("R")
	assert.Len(t, members, 1)
}

func TestLeave_EmptiesRoom(t *testing.T) {
	r := New()
	r.Join("R", "u1", "A", "s1")
	r.Leave("R", "u1", "s1")

	_, ok := r.Room("R")
	assert.False(t, ok, "empty rooms must not exist")
}

func TestLeave_UnknownPairIsNoop(t *testing.T) {
	r := New()
	deliveries := r.Leave("nope", "u1", "s1")
	assert.Nil(t, deliveries)
}

// Open Question behavior: a leave arriving on a stale socket (after the
// user rejoined elsewhere) must not scrub the new index entry.
func TestLeave_StaleSocketDoesNotClobberRejoinedIndex(t *testing.T) {
	r := New()
	r.Join("R", "u1", "A", "s1")
	r.Join("R", "u1", "A", "s1prime") // rejoin on a new socket
	r.Leave("R", "u1", "s1")          // late leave from the stale socket

	socket, ok := r.LookupSocket("u1")
	require.True(t, ok)
	assert.Equal(t, ids.SocketId("s1prime"), socket)
}

// Property-style sweep across a scripted sequence of operations: after
// every step, no empty rooms exist and no user appears twice in a room.
func TestInvariants_AcrossOperationSequence(t *testing.T) {
	r := New()

	type op struct {
		kind           string
		room, user, sk string
	}
	ops := []op{
		{"join", "R1", "u1", "s1"},
		{"join", "R1", "u2", "s2"},
		{"join", "R2", "u1", "s3"},
		{"leave", "R1", "u2", "s2"},
		{"join", "R1", "u1", "s1b"},
		{"disconnect", "", "", "s3"},
		{"leave", "R1", "u1", "s1b"},
	}

	for _, o := range ops {
		switch o.kind {
		case "join":
			r.Join(ids.RoomId(o.room), ids.UserId(o.user), "n", ids.SocketId(o.sk))
		case "leave":
			r.Leave(ids.RoomId(o.room), ids.UserId(o.user), ids.SocketId(o.sk))
		case "disconnect":
			r.Disconnect(ids.SocketId(o.sk))
		}

		for _, id := range r.RoomIds() {
			members, ok := r.Room(id)
			require.True(t, ok)
			assert.NotEmpty(t, members, "empty rooms must not exist: %s", id)

			seen := map[ids.UserId]bool{}
			for _, m := range members {
				assert.False(t, seen[m.UserId], "duplicate user in room")
				seen[m.UserId] = true
			}
		}
	}
}
