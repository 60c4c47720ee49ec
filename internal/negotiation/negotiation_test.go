package negotiation

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/signalcore/internal/ids"
)

// recordingSignaler records every outbound signal so tests can assert on
// role and glare-resolution behavior without a real transport.
type recordingSignaler struct {
	mu   sync.Mutex
	sent []json.RawMessage
}

func (r *recordingSignaler) SendSignal(_ ids.UserId, signal json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, signal)
}

func (r *recordingSignaler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func newConn(t *testing.T) *pion.PeerConnection {
	t.Helper()
	conn, err := pion.NewPeerConnection(pion.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRoleAssignment_IsDeterministicAndComplementary(t *testing.T) {
	connA := newConn(t)
	connB := newConn(t)

	a := New("user-a", "user-b", connA, &recordingSignaler{}, 10*time.Millisecond)
	b := New("user-b", "user-a", connB, &recordingSignaler{}, 10*time.Millisecond)

	assert.NotEqual(t, a.polite, b.polite, "exactly one side must be polite")
	assert.Equal(t, ids.UserId("user-a") < ids.UserId("user-b"), a.polite)
}

func TestHandleDescription_ImpoliteSideIgnoresCollidingOffer(t *testing.T) {
	conn := newConn(t)
	m := New("user-b", "user-a", conn, &recordingSignaler{}, 10*time.Millisecond)
	require.False(t, m.polite, "user-a < user-b, so user-b is impolite")

	m.makingOffer = true
	m.handleDescription(signalKind{Type: "offer", SDP: "v=0\r\n"})

	assert.True(t, m.ignoreOffer)
}

func TestHandleDescription_PoliteSideAcceptsCollidingOffer(t *testing.T) {
	conn := newConn(t)
	m := New("user-a", "user-b", conn, &recordingSignaler{}, 10*time.Millisecond)
	require.True(t, m.polite, "user-a < user-b, so user-a is polite")

	m.makingOffer = true
	m.handleDescription(signalKind{Type: "offer", SDP: validOfferSDP})

	assert.False(t, m.ignoreOffer, "the polite side must roll back and accept, never ignore")
}

func TestHandleCandidate_BuffersUntilRemoteDescriptionSet(t *testing.T) {
	conn := newConn(t)
	m := New("user-a", "user-b", conn, &recordingSignaler{}, 10*time.Millisecond)

	m.handleCandidate(pion.ICECandidateInit{Candidate: "candidate:1 1 UDP 1 127.0.0.1 9 typ host"})
	assert.Len(t, m.pendingICE, 1, "a candidate arriving before any remote description must be buffered")
}

const validOfferSDP = `v=0
o=- 0 0 IN IP4 127.0.0.1
s=-
t=0 0
a=group:BUNDLE 0
a=msid-semantic: WMS
m=application 9 UDP/DTLS/SCTP webrtc-datachannel
c=IN IP4 0.0.0.0
a=ice-ufrag:abcd
a=ice-pwd:abcdefghijklmnopqrstuvwx
a=fingerprint:sha-256 00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00
a=setup:actpass
a=mid:0
a=sctp-port:5000
`
