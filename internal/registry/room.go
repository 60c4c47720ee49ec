package registry

import (
	"sync"

	"github.com/nordcall/signalcore/internal/ids"
)

// Member is a single room participant, keyed by UserId per spec.md §3.
type Member struct {
	UserId   ids.UserId
	SocketId ids.SocketId
	Nickname string
}

// room is an ordered mapping UserId -> Member, guarded by its own lock so a
// snapshot taken after the Registry's lock is released is still consistent.
// Every mutation also runs under the Registry's lock, so readers that go
// through the Registry wait for any room's mutation to finish. Grounded on
// the per-room sync.RWMutex pattern used by
// RoseWrightdev-Video-Conferencing's Room type.
type room struct {
	mu      sync.RWMutex
	order   []ids.UserId
	members map[ids.UserId]Member
}

func newRoom() *room {
	return &room{members: make(map[ids.UserId]Member)}
}

// put inserts or replaces m. A rejoin (same UserId, possibly new SocketId)
// keeps the member's original position in the order; a fresh join appends.
func (r *room) put(m Member) (rejoin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, rejoin = r.members[m.UserId]
	if !rejoin {
		r.order = append(r.order, m.UserId)
	}
	r.members[m.UserId] = m
	return rejoin
}

// delete removes user from the room, reporting the member that was removed.
func (r *room) delete(user ids.UserId) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[user]
	if !ok {
		return Member{}, false
	}
	delete(r.members, user)
	for i, u := range r.order {
		if u == user {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return m, true
}

func (r *room) get(user ids.UserId) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[user]
	return m, ok
}

// snapshot returns members in join order, safe to hand to the delivery
// layer after the lock is released.
func (r *room) snapshot() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Member, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, r.members[u])
	}
	return out
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// membersBySocket returns every member currently bound to socket. A single
// socket normally owns at most one member per room, but the type permits
// more so disconnect sweeps never have to assume uniqueness.
func (r *room) membersBySocket(socket ids.SocketId) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Member
	for _, u := range r.order {
		if m := r.members[u]; m.SocketId == socket {
			out = append(out, m)
		}
	}
	return out
}
