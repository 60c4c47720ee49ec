// Package protocol defines the wire envelope and the server/client event
// catalog from the external interfaces spec, plus the typed-at-the-boundary
// conversion design note calls for: the transport deals only in Envelope
// (a string event name and a raw JSON payload); everything inside the core
// operates on the typed Client* / Server* structs below.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/nordcall/signalcore/internal/corerr"
	"github.com/nordcall/signalcore/internal/ids"
)

// Envelope is the only shape the transport layer knows about: a named event
// and its raw JSON payload. Generalizes the teacher's Message{Type,Payload}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server event names.
const (
	EventJoinRoom            = "join-room"
	EventLeaveRoom           = "leave-room"
	EventRequestParticipants = "request-participants"
	EventSignal              = "signal"
	EventChatMessage         = "chat-message"
)

// Server -> Client event names.
const (
	EventExistingParticipants = "existing-participants"
	EventUserJoined           = "userJoined"
	EventUserRejoined         = "userRejoined"
	EventUserLeft             = "userLeft"
	EventParticipantCount     = "participant-count"
	EventReceiveMessage       = "receiveMessage"
)

// JoinRoomPayload is the join-room client event payload.
type JoinRoomPayload struct {
	RoomId   ids.RoomId `json:"roomId"`
	UserId   ids.UserId `json:"userId"`
	Nickname string     `json:"nickname"`
}

// LeaveRoomPayload is the leave-room client event payload.
type LeaveRoomPayload struct {
	RoomId ids.RoomId `json:"roomId"`
	UserId ids.UserId `json:"userId"`
}

// RequestParticipantsPayload is the request-participants client event payload.
type RequestParticipantsPayload struct {
	RoomId ids.RoomId `json:"roomId"`
}

// SignalPayload carries an opaque WebRTC signaling body (SDP or ICE
// candidate) between two named users. The core never inspects Signal.
type SignalPayload struct {
	To     ids.UserId      `json:"to"`
	From   ids.UserId      `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

// InboundSignalPayload is what the target socket receives: the sender's
// identity plus the same opaque signal.
type InboundSignalPayload struct {
	From   ids.UserId      `json:"from"`
	Signal json.RawMessage `json:"signal"`
}

// ChatMessagePayload is the chat-message client event payload.
type ChatMessagePayload struct {
	RoomId         ids.RoomId    `json:"roomId"`
	Id             ids.MessageId `json:"id"`
	SenderId       ids.UserId    `json:"senderId"`
	SenderNickname string        `json:"senderNickname"`
	Content        string        `json:"content"`
	Timestamp      int64         `json:"timestamp"`
}

// ReceiveMessagePayload is relayed to every room member except the sender.
type ReceiveMessagePayload struct {
	Id             ids.MessageId `json:"id"`
	SenderId       ids.UserId    `json:"senderId"`
	SenderNickname string        `json:"senderNickname"`
	Content        string        `json:"content"`
	Timestamp      int64         `json:"timestamp"`
}

// ParticipantInfo describes one room member as broadcast to others.
type ParticipantInfo struct {
	UserId   ids.UserId   `json:"userId"`
	SocketId ids.SocketId `json:"socketId"`
	Nickname string       `json:"nickname"`
}

// UserLeftPayload names the member who left.
type UserLeftPayload struct {
	UserId ids.UserId `json:"userId"`
}

// Encode packs a typed payload into an Envelope for the given event.
func Encode(event string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return &Envelope{Event: event, Payload: raw}, nil
}

// Decode unmarshals an Envelope's payload into dst.
func Decode(env *Envelope, dst any) error {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return corerr.Wrap("decode-"+env.Event, corerr.ErrMalformedEvent, err.Error())
	}
	return nil
}
