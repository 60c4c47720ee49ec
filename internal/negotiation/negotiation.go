// Package negotiation implements the per-peer Negotiation State Machine
// from spec.md §4.5: the Perfect Negotiation pattern, with a deterministic
// polite/impolite role split, glare resolution, and ICE restart on
// failure. Grounded on the signaling shape of the teacher's
// cli/internal/transfer/peer.go (CreateOffer/CreateAnswer/HandleSDPSignal)
// but restructured around one goroutine per peer, as the design notes call
// for, so every SDP/ICE event for a given peer is strictly ordered.
package negotiation

import (
	"encoding/json"
	"log/slog"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/nordcall/signalcore/internal/ids"
)

// Signaler sends an outbound signal payload to the remote peer. Implemented
// by internal/session on top of the WebSocket client.
type Signaler interface {
	SendSignal(to ids.UserId, signal json.RawMessage)
}

type signalKind struct {
	Type      string                 `json:"type,omitempty"`
	SDP       string                 `json:"sdp,omitempty"`
	Candidate *pion.ICECandidateInit `json:"candidate,omitempty"`
}

// Machine runs the negotiation state machine for exactly one remote peer.
// All state is private to its goroutine; callers only ever feed its
// channels through IngestSignal and the pion callbacks attached by Wire.
type Machine struct {
	self, peer ids.UserId
	polite     bool
	conn       *pion.PeerConnection
	signaler   Signaler

	debounce time.Duration

	negotiationNeeded chan struct{}
	remoteSignal      chan json.RawMessage
	closeCh           chan struct{}

	makingOffer bool
	ignoreOffer bool
	pendingICE  []pion.ICECandidateInit
}

// New builds a Machine. Role is decided once, deterministically, by
// comparing the two UserIds lexicographically: the lexicographically
// smaller user is polite. Both sides compute the same answer independently
// without any coordination round-trip.
func New(self, peer ids.UserId, conn *pion.PeerConnection, signaler Signaler, debounce time.Duration) *Machine {
	return &Machine{
		self:              self,
		peer:              peer,
		polite:            self < peer,
		conn:              conn,
		signaler:          signaler,
		debounce:          debounce,
		negotiationNeeded: make(chan struct{}, 1),
		remoteSignal:      make(chan json.RawMessage, 16),
		closeCh:           make(chan struct{}),
	}
}

// Wire attaches the pion callbacks that feed this machine's channels. Call
// once, after New, before Run.
func (m *Machine) Wire() {
	m.conn.OnNegotiationNeeded(func() {
		select {
		case m.negotiationNeeded <- struct{}{}:
		default:
		}
	})

	m.conn.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		raw, err := json.Marshal(signalKind{Candidate: &init})
		if err != nil {
			slog.Warn("marshal ice candidate", "peer", m.peer, "error", err)
			return
		}
		m.signaler.SendSignal(m.peer, raw)
	})

	m.conn.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		if state == pion.ICEConnectionStateFailed {
			m.restartICE()
		}
	})
}

// IngestSignal implements spec.md §4.5 ingest-signal(peer, payload):
// hand a raw signal envelope to this peer's goroutine for ordered
// processing.
func (m *Machine) IngestSignal(raw json.RawMessage) {
	select {
	case m.remoteSignal <- raw:
	case <-m.closeCh:
	}
}

// Close stops the machine's goroutine. The underlying PeerConnection is the
// caller's (internal/peer's Manager) to close.
func (m *Machine) Close() {
	close(m.closeCh)
}

// Run drives the state machine. Call it in its own goroutine; it returns
// when Close is called.
func (m *Machine) Run() {
	var debounceTimer *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-m.closeCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-m.negotiationNeeded:
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(m.debounce)
			} else {
				debounceTimer.Reset(m.debounce)
			}
			debounceC = debounceTimer.C

		case <-debounceC:
			debounceC = nil
			m.makeOffer()

		case raw := <-m.remoteSignal:
			m.handleSignal(raw)
		}
	}
}

func (m *Machine) makeOffer() {
	if m.conn.SignalingState() != pion.SignalingStateStable {
		return
	}

	m.makingOffer = true
	defer func() { m.makingOffer = false }()

	offer, err := m.conn.CreateOffer(nil)
	if err != nil {
		slog.Warn("create offer", "peer", m.peer, "error", err)
		return
	}
	if err := m.conn.SetLocalDescription(offer); err != nil {
		slog.Warn("set local description (offer)", "peer", m.peer, "error", err)
		return
	}

	raw, err := json.Marshal(signalKind{Type: "offer", SDP: offer.SDP})
	if err != nil {
		slog.Warn("marshal offer", "peer", m.peer, "error", err)
		return
	}
	m.signaler.SendSignal(m.peer, raw)
}

// handleSignal implements the Perfect Negotiation glare-resolution rule:
// when both sides offer at once, the impolite side ignores the incoming
// offer and keeps its own; the polite side rolls back and accepts the
// incoming offer.
func (m *Machine) handleSignal(raw json.RawMessage) {
	var sig signalKind
	if err := json.Unmarshal(raw, &sig); err != nil {
		slog.Warn("malformed signal", "peer", m.peer, "error", err)
		return
	}

	switch sig.Type {
	case "offer", "answer":
		m.handleDescription(sig)
	case "":
		if sig.Candidate != nil {
			m.handleCandidate(*sig.Candidate)
		}
	default:
		slog.Warn("unrecognized signal type", "peer", m.peer, "type", sig.Type)
	}
}

func (m *Machine) handleDescription(sig signalKind) {
	offerCollision := sig.Type == "offer" && (m.makingOffer || m.conn.SignalingState() != pion.SignalingStateStable)

	m.ignoreOffer = !m.polite && offerCollision
	if m.ignoreOffer {
		slog.Debug("ignoring colliding offer", "peer", m.peer)
		return
	}

	if offerCollision {
		rollback := pion.SessionDescription{Type: pion.SDPTypeRollback}
		if err := m.conn.SetLocalDescription(rollback); err != nil {
			slog.Warn("rollback local description", "peer", m.peer, "error", err)
		}
	}

	desc := pion.SessionDescription{SDP: sig.SDP}
	if sig.Type == "offer" {
		desc.Type = pion.SDPTypeOffer
	} else {
		desc.Type = pion.SDPTypeAnswer
	}

	err := m.conn.SetRemoteDescription(desc)
	if err != nil {
		slog.Warn("set remote description", "peer", m.peer, "type", sig.Type, "error", err)
		return
	}

	m.flushPendingICE()

	if sig.Type == "offer" {
		answer, err := m.conn.CreateAnswer(nil)
		if err != nil {
			slog.Warn("create answer", "peer", m.peer, "error", err)
			return
		}
		if err := m.conn.SetLocalDescription(answer); err != nil {
			slog.Warn("set local description (answer)", "peer", m.peer, "error", err)
			return
		}
		raw, err := json.Marshal(signalKind{Type: "answer", SDP: answer.SDP})
		if err != nil {
			slog.Warn("marshal answer", "peer", m.peer, "error", err)
			return
		}
		m.signaler.SendSignal(m.peer, raw)
	}
}

func (m *Machine) handleCandidate(init pion.ICECandidateInit) {
	if m.conn.RemoteDescription() == nil {
		// Buffer candidates that race ahead of the remote description;
		// spec.md §4.5 requires them replayed exactly once, in order.
		m.pendingICE = append(m.pendingICE, init)
		return
	}
	if err := m.conn.AddICECandidate(init); err != nil {
		if !m.ignoreOffer {
			slog.Warn("add ice candidate", "peer", m.peer, "error", err)
		}
	}
}

func (m *Machine) flushPendingICE() {
	pending := m.pendingICE
	m.pendingICE = nil
	for _, c := range pending {
		if err := m.conn.AddICECandidate(c); err != nil {
			slog.Warn("add buffered ice candidate", "peer", m.peer, "error", err)
		}
	}
}

// restartICE implements spec.md §4.5's ICE-restart-on-failure behavior.
// Only the impolite side initiates the restart, so both sides don't race
// to produce competing restart offers.
func (m *Machine) restartICE() {
	if m.polite {
		return
	}
	offer, err := m.conn.CreateOffer(&pion.OfferOptions{ICERestart: true})
	if err != nil {
		slog.Warn("create ice-restart offer", "peer", m.peer, "error", err)
		return
	}
	if err := m.conn.SetLocalDescription(offer); err != nil {
		slog.Warn("set local description (ice-restart)", "peer", m.peer, "error", err)
		return
	}
	raw, err := json.Marshal(signalKind{Type: "offer", SDP: offer.SDP})
	if err != nil {
		return
	}
	m.signaler.SendSignal(m.peer, raw)
}
