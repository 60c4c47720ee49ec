// Package peer implements the client-side Peer Connection Manager from
// spec.md §4.4: one pion RTCPeerConnection per remote user, bounded by a
// capacity limit, garbage-collected when idle, torn down and rebuilt when a
// local stream changes. Grounded on the teacher's
// cli/internal/transfer/peer.go pion wrapper functions, generalized from a
// single file-transfer data channel to one media peer connection per remote
// user; signaling itself travels over the session's WebSocket.
package peer

import (
	"context"
	"sort"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/nordcall/signalcore/internal/corerr"
	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/metrics"
)

// Peer wraps one RTCPeerConnection and the bookkeeping the manager needs to
// evict it under capacity pressure or garbage-collect it when idle.
type Peer struct {
	UserId     ids.UserId
	Conn       *pion.PeerConnection
	CreatedAt  time.Time
	LastActive time.Time

	mu      sync.Mutex
	pending bool // true while a connection attempt is outstanding, not yet connected
}

func (p *Peer) touch() {
	p.mu.Lock()
	p.LastActive = time.Now()
	p.mu.Unlock()
}

func (p *Peer) lastActive() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LastActive
}

// Manager owns every live Peer for one local client session, enforcing
// spec.md §6's MAX_PEER_CONNECTIONS ceiling, §4.4's stale-peer sweep, and
// the per-peer reconnect policy.
type Manager struct {
	mu      sync.Mutex
	peers   map[ids.UserId]*Peer
	pending map[ids.UserId]struct{} // PendingSet: spec.md §3 deferred-retry list

	iceServers []pion.ICEServer
	maxPeers   int
	staleAfter time.Duration

	disconnectGrace time.Duration
	reconnectDelay  time.Duration

	// retryFn re-initiates a peer connection and rewires its negotiation
	// machine; set by internal/session, which is the layer that owns that
	// wiring. Retries are no-ops until it is set.
	retryFn func(user ids.UserId)
}

// Config carries the subset of config.ClientConfig the manager needs.
type Config struct {
	STUNServers        []string
	MaxPeerConnections int
	StaleThreshold     time.Duration
	DisconnectGrace    time.Duration
	ReconnectDelay     time.Duration
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		peers:           make(map[ids.UserId]*Peer),
		pending:         make(map[ids.UserId]struct{}),
		iceServers:      []pion.ICEServer{{URLs: cfg.STUNServers}},
		maxPeers:        cfg.MaxPeerConnections,
		staleAfter:      cfg.StaleThreshold,
		disconnectGrace: cfg.DisconnectGrace,
		reconnectDelay:  cfg.ReconnectDelay,
	}
}

// SetRetryHandler installs the callback the manager fires when a peer
// evicted for capacity or dropped by the reconnect policy below should be
// re-initiated. internal/session wires this to its own connectToPeer, since
// re-establishing negotiation requires state the manager doesn't own.
func (m *Manager) SetRetryHandler(fn func(user ids.UserId)) {
	m.mu.Lock()
	m.retryFn = fn
	m.mu.Unlock()
}

// Initiate implements spec.md §4.4 initiate(user): create a fresh
// RTCPeerConnection for user, evicting the oldest-by-created_at non-pending
// peer first if the manager is already at capacity.
func (m *Manager) Initiate(user ids.UserId) (*Peer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pending, user)

	if existing, ok := m.peers[user]; ok {
		return existing, nil
	}

	if len(m.peers) >= m.maxPeers {
		if !m.evictOldestLocked() {
			return nil, corerr.Wrap("initiate", corerr.ErrCapacityReached, string(user))
		}
	}

	conn, err := pion.NewPeerConnection(pion.Configuration{ICEServers: m.iceServers})
	if err != nil {
		return nil, corerr.New("initiate", err)
	}

	now := time.Now()
	p := &Peer{UserId: user, Conn: conn, CreatedAt: now, LastActive: now, pending: true}
	m.peers[user] = p
	metrics.PeerConnectionsActive.Set(float64(len(m.peers)))

	conn.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		switch state {
		case pion.PeerConnectionStateConnected:
			p.mu.Lock()
			p.pending = false
			p.mu.Unlock()
			p.touch()
		case pion.PeerConnectionStateDisconnected:
			m.scheduleDisconnectGrace(user)
		case pion.PeerConnectionStateFailed:
			m.removeAndScheduleRetry(user, "failed")
		case pion.PeerConnectionStateClosed:
			m.Remove(user, "closed")
		}
	})

	return p, nil
}

// scheduleDisconnectGrace implements spec.md §4.4's "disconnected: wait 5s;
// if still disconnected or failed, remove the peer, add to PendingSet, then
// after a further 2s fire initiate" policy.
func (m *Manager) scheduleDisconnectGrace(user ids.UserId) {
	grace := m.disconnectGrace
	go func() {
		time.Sleep(grace)

		m.mu.Lock()
		p, ok := m.peers[user]
		m.mu.Unlock()
		if !ok {
			return
		}

		switch p.Conn.ConnectionState() {
		case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateFailed:
			m.removeAndScheduleRetry(user, "disconnected")
		}
	}()
}

// removeAndScheduleRetry implements the remove+PendingSet+retry-after-delay
// shape shared by the "disconnected" and "failed" branches of spec.md
// §4.4's reconnect policy. Capacity eviction (evictOldestLocked) does not
// use it: it only places the user in PendingSet, and Sweep retries it.
func (m *Manager) removeAndScheduleRetry(user ids.UserId, reason string) {
	m.mu.Lock()
	if _, stillPresent := m.peers[user]; !stillPresent {
		m.mu.Unlock()
		return
	}
	m.removeLocked(user, reason)
	m.pending[user] = struct{}{}
	retryFn := m.retryFn
	delay := m.reconnectDelay
	m.mu.Unlock()

	if retryFn == nil {
		return
	}
	go func() {
		time.Sleep(delay)
		m.mu.Lock()
		_, stillPending := m.pending[user]
		m.mu.Unlock()
		if stillPending {
			retryFn(user)
		}
	}()
}

// evictOldestLocked removes the oldest-by-created_at, non-pending peer and
// places it in PendingSet for later retry, per spec.md §4.4's capacity
// policy. Callers must hold m.mu. Returns false if every peer is still
// pending (fresh connection attempts are never evicted to make room).
func (m *Manager) evictOldestLocked() bool {
	var oldest *Peer
	for _, p := range m.peers {
		p.mu.Lock()
		pending := p.pending
		p.mu.Unlock()
		if pending {
			continue
		}
		if oldest == nil || p.CreatedAt.Before(oldest.CreatedAt) {
			oldest = p
		}
	}
	if oldest == nil {
		return false
	}
	m.removeLocked(oldest.UserId, "capacity")
	m.pending[oldest.UserId] = struct{}{}
	return true
}

// Get returns the peer for user, if any.
func (m *Manager) Get(user ids.UserId) (*Peer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[user]
	return p, ok
}

// Touch records activity on user's peer in LastActive. Called by
// internal/session when a remote track arrives. Neither Sweep nor capacity
// eviction reads LastActive; both go by CreatedAt.
func (m *Manager) Touch(user ids.UserId) {
	m.mu.Lock()
	p, ok := m.peers[user]
	m.mu.Unlock()
	if ok {
		p.touch()
	}
}

// Remove implements spec.md §4.4 remove(user): close and forget the peer
// connection for user.
func (m *Manager) Remove(user ids.UserId, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(user, reason)
}

func (m *Manager) removeLocked(user ids.UserId, reason string) {
	p, ok := m.peers[user]
	if !ok {
		return
	}
	delete(m.peers, user)
	p.Conn.Close()
	metrics.PeerConnectionsActive.Set(float64(len(m.peers)))
	metrics.PeerConnectionsEvicted.WithLabelValues(reason).Inc()
}

// CloseAll implements spec.md §4.4 close-all(): tear down every peer
// connection, used on session shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for user := range m.peers {
		m.removeLocked(user, "close-all")
	}
	m.pending = make(map[ids.UserId]struct{})
}

// Sweep implements spec.md §4.4's periodic GC: remove any connection older
// than STALE_THRESHOLD whose transport state is disconnected or failed.
// A peer that is merely idle but still connected is never swept — nothing
// in the core refreshes LastActive once media is flowing, so only live
// transport state, not the clock alone, may condemn a peer here. Also
// drains PendingSet, retrying any user still waiting for reconnection.
func (m *Manager) Sweep() {
	cutoff := time.Now().Add(-m.staleAfter)

	m.mu.Lock()
	var stale []ids.UserId
	for user, p := range m.peers {
		p.mu.Lock()
		pending := p.pending
		p.mu.Unlock()
		if pending {
			continue
		}
		if !p.CreatedAt.Before(cutoff) {
			continue
		}
		switch p.Conn.ConnectionState() {
		case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateFailed:
			stale = append(stale, user)
		}
	}
	for _, user := range stale {
		m.removeLocked(user, "stale")
	}

	var toRetry []ids.UserId
	for user := range m.pending {
		toRetry = append(toRetry, user)
	}
	retryFn := m.retryFn
	m.mu.Unlock()

	if retryFn == nil {
		return
	}
	for _, user := range toRetry {
		retryFn(user)
	}
}

// RunSweeper starts a background GC loop on interval until ctx is canceled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Users returns every user currently holding a peer connection, oldest
// first, used by the session's stream swap.
func (m *Manager) Users() []ids.UserId {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	users := make([]ids.UserId, len(out))
	for i, p := range out {
		users[i] = p.UserId
	}
	return users
}

// Pending returns every user currently in PendingSet, awaiting retry.
func (m *Manager) Pending() []ids.UserId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ids.UserId, 0, len(m.pending))
	for user := range m.pending {
		out = append(out, user)
	}
	return out
}
