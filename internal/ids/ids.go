// Package ids defines the opaque identifier types shared by every layer of
// the signaling core.
package ids

import "github.com/google/uuid"

// UserId is client-generated and stable across a client's reconnects.
type UserId string

// SocketId is server-assigned per transport session and changes on every
// reconnect.
type SocketId string

// RoomId names a room. Rooms are created implicitly by the first join.
type RoomId string

// MessageId uniquely identifies a chat message, assigned by its sender.
type MessageId string

// NewUserId generates a fresh client identity, used by the demo CLI client
// when the operator doesn't supply one.
func NewUserId() UserId {
	return UserId(uuid.NewString())
}

// NewSocketId generates a server-side socket identity for a freshly accepted
// transport connection.
func NewSocketId() SocketId {
	return SocketId(uuid.NewString())
}

// NewMessageId generates a fresh chat message identity.
func NewMessageId() MessageId {
	return MessageId(uuid.NewString())
}
