// Package relay implements the Signal Router and Chat Relay from spec.md
// §4.2-§4.3: both are pure forwarding operations over the Room Registry's
// already-serialized state, so neither needs its own lock.
package relay

import (
	"log/slog"

	"github.com/nordcall/signalcore/internal/corerr"
	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/nordcall/signalcore/internal/registry"
)

// SocketIndex is the read-only slice of Registry the signal router needs.
type SocketIndex interface {
	LookupSocket(user ids.UserId) (ids.SocketId, bool)
	IsUserInAnyRoom(user ids.UserId) bool
}

// RouteSignal implements spec.md §4.2 route-signal. The payload is never
// inspected, only addressed: it is forwarded exactly once to payload.To if
// that user currently has a bound socket, and dropped with a log line
// otherwise. from is checked against room membership purely for the log
// line — per spec the router forwards regardless of that check's outcome,
// since there is no authentication to enforce it against.
func RouteSignal(idx SocketIndex, payload protocol.SignalPayload) (*registry.Delivery, error) {
	if !idx.IsUserInAnyRoom(payload.From) {
		slog.Warn("signal from user not currently in any room", "from", payload.From, "to", payload.To)
	}

	socket, ok := idx.LookupSocket(payload.To)
	if !ok {
		slog.Info("dropping signal for unknown target", "to", payload.To, "from", payload.From)
		return nil, corerr.Wrap("route-signal", corerr.ErrUnknownTarget, string(payload.To))
	}

	env, err := protocol.Encode(protocol.EventSignal, protocol.InboundSignalPayload{
		From:   payload.From,
		Signal: payload.Signal,
	})
	if err != nil {
		return nil, corerr.New("route-signal", err)
	}

	return &registry.Delivery{Socket: socket, Envelope: env}, nil
}
