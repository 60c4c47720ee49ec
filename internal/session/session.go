package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/nordcall/signalcore/internal/config"
	"github.com/nordcall/signalcore/internal/corerr"
	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/negotiation"
	"github.com/nordcall/signalcore/internal/peer"
	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/nordcall/signalcore/internal/track"
)

// ChatMessage is a received chat-message event, handed to the CLI's UI
// layer for rendering.
type ChatMessage struct {
	SenderId       ids.UserId
	SenderNickname string
	Content        string
	Timestamp      int64
}

// Participant mirrors protocol.ParticipantInfo for the UI layer, without
// coupling it to the wire package.
type Participant struct {
	UserId   ids.UserId
	Nickname string
}

// Session orchestrates one client's presence in one room: the signaling
// connection, its peer connections, and its negotiation machines. It is
// the Go-process analogue of what would be a browser tab's worth of
// WebRTC state in spec.md's original interaction model.
type Session struct {
	cfg    *config.ClientConfig
	ws     *wsClient
	peers  *peer.Manager
	tracks *track.Router

	// mu guards negotiators and nicknames: connectToPeer/teardownPeer run
	// on the dispatch loop, the cleanup ticker, and the peer manager's own
	// retry goroutines, all concurrently.
	mu          sync.Mutex
	negotiators map[ids.UserId]*negotiation.Machine

	RoomId   ids.RoomId
	UserId   ids.UserId
	Nickname string

	nicknames map[ids.UserId]string

	// Chat and Participants surface events to the CLI; buffered so a slow
	// UI goroutine never blocks the session's dispatch loop.
	Chat         chan ChatMessage
	Participants chan []Participant
}

func New(cfg *config.ClientConfig, user ids.UserId, nickname string) *Session {
	s := &Session{
		cfg: cfg,
		ws:  newWSClient(cfg.ServerURL, 25*time.Second, 60*time.Second),
		peers: peer.NewManager(peer.Config{
			STUNServers:        cfg.STUNServers,
			MaxPeerConnections: cfg.MaxPeerConnections,
			StaleThreshold:     cfg.StaleThreshold,
			DisconnectGrace:    cfg.DisconnectGrace,
			ReconnectDelay:     cfg.ReconnectDelay,
		}),
		tracks:       track.NewRouter(),
		negotiators:  make(map[ids.UserId]*negotiation.Machine),
		UserId:       user,
		Nickname:     nickname,
		nicknames:    make(map[ids.UserId]string),
		Chat:         make(chan ChatMessage, 32),
		Participants: make(chan []Participant, 8),
	}
	s.peers.SetRetryHandler(s.connectToPeer)
	return s
}

// Join connects to the signaling server and joins roomId, implementing
// spec.md's external client -> server join-room event. It implements the
// reconnect-then-rejoin policy: if the underlying WebSocket connection
// drops, Join's background loop redials after cfg.ReconnectDelay and
// resends join-room with the same UserId, which the server's Room Registry
// treats as a rejoin rather than a fresh join because UserId (not SocketId)
// is the identity it tracks across reconnects.
func (s *Session) Join(roomId ids.RoomId) error {
	s.RoomId = roomId
	if err := s.ws.Connect(); err != nil {
		return err
	}
	s.sendJoin()
	go s.runDispatchLoop()
	return nil
}

func (s *Session) sendJoin() {
	env, err := protocol.Encode(protocol.EventJoinRoom, protocol.JoinRoomPayload{
		RoomId: s.RoomId, UserId: s.UserId, Nickname: s.Nickname,
	})
	if err != nil {
		slog.Error("encode join-room", "error", err)
		return
	}
	s.ws.Send(env)
}

// SendChat implements spec.md's client -> server chat-message event.
func (s *Session) SendChat(id ids.MessageId, content string, sentAt int64) {
	env, err := protocol.Encode(protocol.EventChatMessage, protocol.ChatMessagePayload{
		RoomId: s.RoomId, Id: id, SenderId: s.UserId, SenderNickname: s.Nickname,
		Content: content, Timestamp: sentAt,
	})
	if err != nil {
		slog.Error("encode chat-message", "error", err)
		return
	}
	s.ws.Send(env)
}

// Close tears down every peer connection and the signaling socket.
func (s *Session) Close() {
	s.peers.CloseAll()
	s.mu.Lock()
	for _, n := range s.negotiators {
		n.Close()
	}
	s.mu.Unlock()
	s.ws.Close()
}

// runDispatchLoop processes server events until the connection drops, then
// reconnects after cfg.ReconnectDelay and rejoins.
func (s *Session) runDispatchLoop() {
	for env := range s.ws.Incoming() {
		s.handleEvent(env)
	}

	slog.Warn("signaling connection lost, reconnecting", "delay", s.cfg.ReconnectDelay)
	time.Sleep(s.cfg.ReconnectDelay)

	if err := s.ws.Connect(); err != nil {
		slog.Error("reconnect failed", "error", err)
		return
	}
	s.sendJoin()
	s.runDispatchLoop()
}

func (s *Session) handleEvent(env *protocol.Envelope) {
	switch env.Event {
	case protocol.EventExistingParticipants:
		var members []protocol.ParticipantInfo
		if err := protocol.Decode(env, &members); err != nil {
			slog.Warn("malformed existing-participants", "error", err)
			return
		}
		s.mu.Lock()
		for _, m := range members {
			s.nicknames[m.UserId] = m.Nickname
		}
		s.mu.Unlock()
		for _, m := range members {
			if m.UserId != s.UserId {
				s.connectToPeer(m.UserId)
			}
		}
		s.publishParticipants(members)

	case protocol.EventUserJoined:
		var p protocol.ParticipantInfo
		if err := protocol.Decode(env, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.nicknames[p.UserId] = p.Nickname
		s.mu.Unlock()
		s.connectToPeer(p.UserId)

	case protocol.EventUserRejoined:
		var p protocol.ParticipantInfo
		if err := protocol.Decode(env, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.nicknames[p.UserId] = p.Nickname
		s.mu.Unlock()
		s.teardownPeer(p.UserId)
		s.connectToPeer(p.UserId)

	case protocol.EventUserLeft:
		var p protocol.UserLeftPayload
		if err := protocol.Decode(env, &p); err != nil {
			return
		}
		s.teardownPeer(p.UserId)

	case protocol.EventSignal:
		var p protocol.InboundSignalPayload
		if err := protocol.Decode(env, &p); err != nil {
			return
		}
		s.mu.Lock()
		n, ok := s.negotiators[p.From]
		s.mu.Unlock()
		if ok {
			n.IngestSignal(p.Signal)
		} else {
			slog.Warn("dropping signal", "error", corerr.Wrap("ingest-signal", corerr.ErrPeerNotFound, string(p.From)))
		}

	case protocol.EventReceiveMessage:
		var p protocol.ReceiveMessagePayload
		if err := protocol.Decode(env, &p); err != nil {
			return
		}
		select {
		case s.Chat <- ChatMessage{SenderId: p.SenderId, SenderNickname: p.SenderNickname, Content: p.Content, Timestamp: p.Timestamp}:
		default:
			slog.Warn("dropping chat message, UI not keeping up")
		}

	case protocol.EventParticipantCount:
		// informational only; the CLI derives its table from Participants.

	default:
		slog.Debug("unhandled event", "event", env.Event)
	}
}

func (s *Session) publishParticipants(members []protocol.ParticipantInfo) {
	out := make([]Participant, 0, len(members))
	for _, m := range members {
		out = append(out, Participant{UserId: m.UserId, Nickname: m.Nickname})
	}
	select {
	case s.Participants <- out:
	default:
	}
}

func (s *Session) connectToPeer(user ids.UserId) {
	// A machine whose peer the manager has already removed (capacity
	// eviction, failed/disconnected retry) is stale: replace it.
	s.mu.Lock()
	stale, exists := s.negotiators[user]
	if exists {
		if _, live := s.peers.Get(user); live {
			s.mu.Unlock()
			return
		}
		delete(s.negotiators, user)
	}
	s.mu.Unlock()
	if exists {
		stale.Close()
	}

	p, err := s.peers.Initiate(user)
	if err != nil {
		slog.Warn("initiate peer connection", "peer", user, "error", err)
		return
	}

	p.Conn.OnTrack(func(remote *pion.TrackRemote, receiver *pion.RTPReceiver) {
		s.peers.Touch(user)
		kind, _ := s.tracks.Route(user, track.Descriptor{
			IsAudio: remote.Kind() == pion.RTPCodecTypeAudio,
			Label:   remote.StreamID() + " " + remote.ID(),
		})
		slog.Debug("routed inbound track", "peer", user, "kind", kind)
	})

	n := negotiation.New(s.UserId, user, p.Conn, s, s.cfg.NegotiationDebounce)
	n.Wire()
	s.mu.Lock()
	s.negotiators[user] = n
	s.mu.Unlock()
	go n.Run()
}

func (s *Session) teardownPeer(user ids.UserId) {
	s.mu.Lock()
	n, ok := s.negotiators[user]
	if ok {
		delete(s.negotiators, user)
	}
	delete(s.nicknames, user)
	s.mu.Unlock()

	if ok {
		n.Close()
	}
	s.peers.Remove(user, "user-left")
	s.tracks.Remove(user)
}

// SwapLocalStream implements spec.md §4.4 swap-local-stream(new_stream):
// tear down every peer connection, wait cfg.StreamSwapDelay, then
// re-initiate to every previously-connected remote, including anything
// still waiting in the peer manager's PendingSet. The local media source
// itself is outside the core (spec.md §7); this re-establishes every
// negotiation once that swap has happened.
func (s *Session) SwapLocalStream() {
	users := s.peers.Users()
	pending := s.peers.Pending()

	for _, user := range users {
		s.teardownPeer(user)
	}

	time.Sleep(s.cfg.StreamSwapDelay)

	for _, user := range append(users, pending...) {
		s.connectToPeer(user)
	}
}

// SendSignal implements negotiation.Signaler, relaying an SDP/ICE payload
// produced by peer's negotiation machine through the signaling socket.
func (s *Session) SendSignal(peer ids.UserId, signal json.RawMessage) {
	env, err := protocol.Encode(protocol.EventSignal, protocol.SignalPayload{
		To: peer, From: s.UserId, Signal: signal,
	})
	if err != nil {
		slog.Error("encode signal", "error", err)
		return
	}
	s.ws.Send(env)
}

// RunCleanup starts the peer connection manager's periodic GC sweep,
// blocking until stop is closed.
func (s *Session) RunCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.peers.Sweep()
		}
	}
}
