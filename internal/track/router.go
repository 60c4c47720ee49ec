package track

import (
	"sync"

	"github.com/nordcall/signalcore/internal/ids"
)

// Slot is a single routed track as the session layer sees it: enough to
// render a participant's video tile and to know what it would replace.
type Slot struct {
	Kind    Kind
	Enabled bool
}

// Router implements spec.md §4.6's routing rules for one peer: a new
// audio or camera track replaces the existing track of the same kind; a
// new screen-share track only ever replaces an existing screen-share.
// Newly received tracks start enabled.
type Router struct {
	mu    sync.Mutex
	slots map[ids.UserId]map[Kind]Slot
}

func NewRouter() *Router {
	return &Router{slots: make(map[ids.UserId]map[Kind]Slot)}
}

// Route implements spec.md §4.6 route(peer, descriptor): classify the
// incoming track and install it in peer's slot for that kind, returning
// whether it replaced an existing track of the same kind.
func (r *Router) Route(peer ids.UserId, d Descriptor) (kind Kind, replaced bool) {
	kind = Classify(d)

	r.mu.Lock()
	defer r.mu.Unlock()

	peerSlots, ok := r.slots[peer]
	if !ok {
		peerSlots = make(map[Kind]Slot)
		r.slots[peer] = peerSlots
	}

	_, replaced = peerSlots[kind]
	peerSlots[kind] = Slot{Kind: kind, Enabled: true}
	return kind, replaced
}

// Remove drops every slot tracked for peer, called when its peer
// connection is torn down.
func (r *Router) Remove(peer ids.UserId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, peer)
}

// Slots returns a snapshot of peer's current tracks, for the CLI's
// participant view.
func (r *Router) Slots(peer ids.UserId) map[Kind]Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[Kind]Slot, len(r.slots[peer]))
	for k, s := range r.slots[peer] {
		out[k] = s
	}
	return out
}
