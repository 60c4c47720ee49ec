// Package registry implements the server-side Room Registry from spec.md
// §4.1: the authoritative mapping of room -> members and the global
// UserId -> SocketId index used to route signaling payloads.
//
// Every mutating operation returns a plan of Deliveries instead of writing
// to a socket itself, so the caller (internal/transport's Hub) can perform
// the actual sends after releasing the registry's locks — per the
// concurrency design in spec.md §5, deriving the recipient list and
// performing the sends must stay separable.
package registry

import (
	"sync"

	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/protocol"
)

// Delivery is one outbound envelope addressed to a socket.
type Delivery struct {
	Socket   ids.SocketId
	Envelope *protocol.Envelope
}

// Registry owns every room and the global user->socket index. The zero
// value is not usable; construct with New.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[ids.RoomId]*room
	globalIndex map[ids.UserId]ids.SocketId
}

func New() *Registry {
	return &Registry{
		rooms:       make(map[ids.RoomId]*room),
		globalIndex: make(map[ids.UserId]ids.SocketId),
	}
}

// Join implements spec.md §4.1 join(room, user, nickname). Rejoin is
// detected when the room already has a member with this UserId, regardless
// of which socket it arrives on.
func (r *Registry) Join(roomId ids.RoomId, user ids.UserId, nickname string, socket ids.SocketId) []Delivery {
	r.mu.Lock()
	rm, ok := r.rooms[roomId]
	if !ok {
		rm = newRoom()
		r.rooms[roomId] = rm
	}

	rejoin := rm.put(Member{UserId: user, SocketId: socket, Nickname: nickname})
	r.globalIndex[user] = socket
	members := rm.snapshot()
	r.mu.Unlock()

	joinEvent := protocol.EventUserJoined
	if rejoin {
		joinEvent = protocol.EventUserRejoined
	}

	var deliveries []Delivery

	existing, _ := protocol.Encode(protocol.EventExistingParticipants, toParticipantInfos(members))
	deliveries = append(deliveries, Delivery{Socket: socket, Envelope: existing})

	joined, _ := protocol.Encode(joinEvent, protocol.ParticipantInfo{UserId: user, SocketId: socket, Nickname: nickname})
	countEnv, _ := protocol.Encode(protocol.EventParticipantCount, len(members))

	for _, m := range members {
		if m.UserId != user {
			deliveries = append(deliveries, Delivery{Socket: m.SocketId, Envelope: joined})
		}
		deliveries = append(deliveries, Delivery{Socket: m.SocketId, Envelope: countEnv})
	}

	return deliveries
}

// Leave implements spec.md §4.1 leave(room, user), triggered by socket s.
// The global index entry for user is cleared only if it still points at s —
// this is the Open Question behavior documented in DESIGN.md, not a bug
// we "fixed": a user who rejoined under a new socket is untouched by a
// leave arriving late on the old socket.
func (r *Registry) Leave(roomId ids.RoomId, user ids.UserId, s ids.SocketId) []Delivery {
	r.mu.Lock()
	rm, ok := r.rooms[roomId]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	member, existed := rm.delete(user)
	if !existed {
		r.mu.Unlock()
		return nil
	}

	if r.globalIndex[user] == s {
		delete(r.globalIndex, user)
	}

	remaining := rm.snapshot()
	empty := len(remaining) == 0
	if empty {
		delete(r.rooms, roomId)
	}
	r.mu.Unlock()

	leftEnv, _ := protocol.Encode(protocol.EventUserLeft, protocol.UserLeftPayload{UserId: member.UserId})
	var deliveries []Delivery
	for _, m := range remaining {
		deliveries = append(deliveries, Delivery{Socket: m.SocketId, Envelope: leftEnv})
	}

	if !empty {
		countEnv, _ := protocol.Encode(protocol.EventParticipantCount, len(remaining))
		for _, m := range remaining {
			deliveries = append(deliveries, Delivery{Socket: m.SocketId, Envelope: countEnv})
		}
	}

	return deliveries
}

// RequestMembers implements spec.md §4.1 request-members(room): a reply to
// the caller alone, empty if the room does not exist.
func (r *Registry) RequestMembers(roomId ids.RoomId, socket ids.SocketId) []Delivery {
	r.mu.RLock()
	rm, ok := r.rooms[roomId]
	r.mu.RUnlock()

	var members []Member
	if ok {
		members = rm.snapshot()
	}

	env, _ := protocol.Encode(protocol.EventExistingParticipants, toParticipantInfos(members))
	return []Delivery{{Socket: socket, Envelope: env}}
}

// Disconnect implements spec.md §4.1 on-disconnect(s): sweep every room for
// members bound to socket s, evict them, and scrub any global index entries
// pointing at s — a superset of Leave's narrower per-room cleanup, since a
// dropped socket may have been a stale rejoin target in several rooms.
func (r *Registry) Disconnect(s ids.SocketId) []Delivery {
	r.mu.Lock()

	var deliveries []Delivery
	for roomId, rm := range r.rooms {
		stale := rm.membersBySocket(s)
		if len(stale) == 0 {
			continue
		}

		for _, m := range stale {
			rm.delete(m.UserId)
		}

		remaining := rm.snapshot()
		empty := len(remaining) == 0
		if empty {
			delete(r.rooms, roomId)
		}

		for _, m := range stale {
			leftEnv, _ := protocol.Encode(protocol.EventUserLeft, protocol.UserLeftPayload{UserId: m.UserId})
			for _, rem := range remaining {
				deliveries = append(deliveries, Delivery{Socket: rem.SocketId, Envelope: leftEnv})
			}
		}

		if !empty {
			countEnv, _ := protocol.Encode(protocol.EventParticipantCount, len(remaining))
			for _, rem := range remaining {
				deliveries = append(deliveries, Delivery{Socket: rem.SocketId, Envelope: countEnv})
			}
		}
	}

	for user, sock := range r.globalIndex {
		if sock == s {
			delete(r.globalIndex, user)
		}
	}
	r.mu.Unlock()

	return deliveries
}

// LookupSocket serves the Signal Router's global-index lookup.
func (r *Registry) LookupSocket(user ids.UserId) (ids.SocketId, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.globalIndex[user]
	return s, ok
}

// IsUserInAnyRoom serves the Signal Router's best-effort origin logging —
// spec.md §4.2 says this check never blocks forwarding, only informs it.
func (r *Registry) IsUserInAnyRoom(user ids.UserId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rm := range r.rooms {
		if _, ok := rm.get(user); ok {
			return true
		}
	}
	return false
}

// RoomMembers serves the Chat Relay's fan-out list.
func (r *Registry) RoomMembers(roomId ids.RoomId) []Member {
	r.mu.RLock()
	rm, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return rm.snapshot()
}

// RoomIds and Room back the GET /api/rooms HTTP surface.
func (r *Registry) RoomIds() []ids.RoomId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ids.RoomId, 0, len(r.rooms))
	for id := range r.rooms {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Room(roomId ids.RoomId) ([]Member, bool) {
	r.mu.RLock()
	rm, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return rm.snapshot(), true
}

func toParticipantInfos(members []Member) []protocol.ParticipantInfo {
	out := make([]protocol.ParticipantInfo, 0, len(members))
	for _, m := range members {
		out = append(out, protocol.ParticipantInfo{UserId: m.UserId, SocketId: m.SocketId, Nickname: m.Nickname})
	}
	return out
}
