// Package httpapi exposes the signaling server's HTTP surface: the
// WebSocket upgrade endpoint, the room-listing REST routes supplementing
// spec.md's WebSocket-only interface, and the operational /healthz and
// /metrics endpoints. Grounded on the teacher's backend/internal/server
// route-registration style.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/registry"
	"github.com/nordcall/signalcore/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Register wires every route onto mux. pingInterval/pingTimeout are passed
// straight through to each accepted connection's heartbeat.
func Register(mux *http.ServeMux, hub *transport.Hub, reg RoomLister, pingInterval, pingTimeout time.Duration) {
	mux.HandleFunc("/ws", serveWs(hub, pingInterval, pingTimeout))
	mux.HandleFunc("/api/rooms", listRooms(reg))
	mux.HandleFunc("/api/rooms/", getRoom(reg))
	mux.HandleFunc("/healthz", healthz)
	mux.Handle("/metrics", promhttp.Handler())
}

func serveWs(hub *transport.Hub, pingInterval, pingTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Accept(conn, pingInterval, pingTimeout)
	}
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// RoomLister is the read-only slice of Registry the REST surface needs.
type RoomLister interface {
	RoomIds() []ids.RoomId
	Room(roomId ids.RoomId) ([]registry.Member, bool)
}

type roomSummary struct {
	RoomId           ids.RoomId `json:"roomId"`
	ParticipantCount int        `json:"participantCount"`
}

type roomDetail struct {
	RoomId       ids.RoomId        `json:"roomId"`
	Participants []registry.Member `json:"participants"`
}

func listRooms(reg RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomIds := reg.RoomIds()
		summaries := make([]roomSummary, 0, len(roomIds))
		for _, id := range roomIds {
			members, _ := reg.Room(id)
			summaries = append(summaries, roomSummary{RoomId: id, ParticipantCount: len(members)})
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func getRoom(reg RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomId := ids.RoomId(r.URL.Path[len("/api/rooms/"):])
		if roomId == "" {
			http.NotFound(w, r)
			return
		}

		members, ok := reg.Room(roomId)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, roomDetail{RoomId: roomId, Participants: members})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
