// Package metrics exposes the signaling server's Prometheus gauges and
// counters, grounded on the naming convention and metric-type choices of
// RoseWrightdev-Video-Conferencing's internal/v1/metrics package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of participants in each room",
	}, []string{"room_id"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total signaling events processed, by event type and outcome",
	}, []string{"event", "outcome"})

	SignalsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "signal",
		Name:      "dropped_total",
		Help:      "Signals dropped because the target user had no bound socket",
	}, []string{"reason"})

	PeerConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalcore",
		Subsystem: "peer",
		Name:      "connections_active",
		Help:      "Current number of active client-side peer connections",
	})

	PeerConnectionsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalcore",
		Subsystem: "peer",
		Name:      "evicted_total",
		Help:      "Peer connections removed, by reason (capacity, stale, failed, disconnected, closed, close-all, user-left)",
	}, []string{"reason"})
)
