package relay

import (
	"github.com/nordcall/signalcore/internal/corerr"
	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/protocol"
	"github.com/nordcall/signalcore/internal/registry"
)

// RoomMembership is the read-only slice of Registry the chat relay needs.
type RoomMembership interface {
	RoomMembers(room ids.RoomId) []registry.Member
}

// RelayChat implements spec.md §4.3 relay-chat: fan out the identical
// payload to every socket in the room except senderSocket. The envelope is
// marshaled once and shared across every Delivery, matching the
// marshal-once-then-fan-out pattern the pack uses for room broadcasts.
func RelayChat(mem RoomMembership, roomId ids.RoomId, senderSocket ids.SocketId, payload protocol.ChatMessagePayload) ([]registry.Delivery, error) {
	members := mem.RoomMembers(roomId)
	if members == nil {
		return nil, corerr.Wrap("relay-chat", corerr.ErrRoomNotFound, string(roomId))
	}

	env, err := protocol.Encode(protocol.EventReceiveMessage, protocol.ReceiveMessagePayload{
		Id:             payload.Id,
		SenderId:       payload.SenderId,
		SenderNickname: payload.SenderNickname,
		Content:        payload.Content,
		Timestamp:      payload.Timestamp,
	})
	if err != nil {
		return nil, corerr.New("relay-chat", err)
	}

	var deliveries []registry.Delivery
	for _, m := range members {
		if m.SocketId == senderSocket {
			continue
		}
		deliveries = append(deliveries, registry.Delivery{Socket: m.SocketId, Envelope: env})
	}
	return deliveries, nil
}
