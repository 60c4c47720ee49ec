package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/signalcore/internal/ids"
)

func testManager(t *testing.T, maxPeers int, staleAfter time.Duration) *Manager {
	t.Helper()
	return testManagerWithDelays(t, maxPeers, staleAfter, time.Minute, time.Minute)
}

func testManagerWithDelays(t *testing.T, maxPeers int, staleAfter, disconnectGrace, reconnectDelay time.Duration) *Manager {
	t.Helper()
	return NewManager(Config{
		STUNServers:        []string{"stun:stun.l.google.com:19302"},
		MaxPeerConnections: maxPeers,
		StaleThreshold:     staleAfter,
		DisconnectGrace:    disconnectGrace,
		ReconnectDelay:     reconnectDelay,
	})
}

func TestInitiate_ReturnsSameInstanceOnRepeat(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	defer m.CloseAll()

	p1, err := m.Initiate("u1")
	require.NoError(t, err)
	p2, err := m.Initiate("u1")
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestInitiate_EvictsOldestByCreatedAtAtCapacity(t *testing.T) {
	m := testManager(t, 2, time.Minute)
	defer m.CloseAll()

	p1, err := m.Initiate("u1")
	require.NoError(t, err)
	p1.mu.Lock()
	p1.pending = false
	p1.mu.Unlock()
	p1.CreatedAt = time.Now().Add(-time.Hour)
	p1.touch() // recently active, but still the oldest by created_at

	_, err = m.Initiate("u2")
	require.NoError(t, err)
	p2, _ := m.Get("u2")
	p2.mu.Lock()
	p2.pending = false
	p2.mu.Unlock()

	_, err = m.Initiate("u3")
	require.NoError(t, err)

	_, stillThere := m.Get("u1")
	assert.False(t, stillThere, "oldest-by-created_at peer should have been evicted to make room")
	_, u2There := m.Get("u2")
	assert.True(t, u2There)

	pending := m.Pending()
	assert.Contains(t, pending, ids.UserId("u1"), "evicted peer must be placed in PendingSet for retry")
}

func TestInitiate_AllPendingRefusesNewConnection(t *testing.T) {
	m := testManager(t, 1, time.Minute)
	defer m.CloseAll()

	_, err := m.Initiate("u1")
	require.NoError(t, err)

	_, err = m.Initiate("u2")
	assert.Error(t, err)
}

func TestSweep_NeverRemovesAHealthyConnectionByAgeAlone(t *testing.T) {
	m := testManager(t, 10, 10*time.Millisecond)
	defer m.CloseAll()

	p, err := m.Initiate("u1")
	require.NoError(t, err)
	p.mu.Lock()
	p.pending = false
	p.mu.Unlock()
	p.CreatedAt = time.Now().Add(-time.Hour)

	m.Sweep()

	_, stillThere := m.Get("u1")
	assert.True(t, stillThere, "a connection that is old but never reached disconnected/failed must survive the sweep")
}

func TestSweep_IgnoresPendingPeersRegardlessOfAge(t *testing.T) {
	m := testManager(t, 10, 10*time.Millisecond)
	defer m.CloseAll()

	p, err := m.Initiate("u1")
	require.NoError(t, err)
	p.CreatedAt = time.Now().Add(-time.Hour) // still pending: true

	m.Sweep()

	_, stillThere := m.Get("u1")
	assert.True(t, stillThere, "a pending connection attempt must never be swept")
}

func TestRemove_ClosesAndForgets(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	_, err := m.Initiate("u1")
	require.NoError(t, err)

	m.Remove("u1", "test")
	_, ok := m.Get("u1")
	assert.False(t, ok)
}

func TestRemoveAndScheduleRetry_FiresRetryHandlerAfterDelay(t *testing.T) {
	m := testManagerWithDelays(t, 10, time.Minute, time.Millisecond, time.Millisecond)
	defer m.CloseAll()

	_, err := m.Initiate("u1")
	require.NoError(t, err)

	retried := make(chan ids.UserId, 1)
	m.SetRetryHandler(func(user ids.UserId) { retried <- user })

	m.removeAndScheduleRetry("u1", "failed")

	_, stillThere := m.Get("u1")
	assert.False(t, stillThere, "removeAndScheduleRetry must remove the peer immediately")

	select {
	case user := <-retried:
		assert.Equal(t, ids.UserId("u1"), user)
	case <-time.After(time.Second):
		t.Fatal("retry handler was never called")
	}
}

func TestSweep_DrainsPendingSetThroughRetryHandler(t *testing.T) {
	m := testManager(t, 10, time.Minute)
	defer m.CloseAll()

	_, err := m.Initiate("u1")
	require.NoError(t, err)
	m.mu.Lock()
	m.removeLocked("u1", "test-setup")
	m.pending["u1"] = struct{}{}
	m.mu.Unlock()

	retried := make(chan ids.UserId, 1)
	m.SetRetryHandler(func(user ids.UserId) { retried <- user })

	m.Sweep()

	select {
	case user := <-retried:
		assert.Equal(t, ids.UserId("u1"), user)
	case <-time.After(time.Second):
		t.Fatal("sweep never retried the pending peer")
	}
}
