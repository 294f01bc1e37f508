package events

import (
	"encoding/json"
	"time"

	"github.com/nkarpov/roomcast/internal/domain/models"
)

// Message - the wire envelope, both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewMessage marshals payload into an envelope. A payload that cannot be
// marshaled is a programming error, so the error is surfaced to the caller.
func NewMessage(eventType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{Type: eventType, Data: data}, nil
}

// Inbound event types.
const (
	TypeCreateRoom     = "createRoom"
	TypeCreateGameRoom = "createGameRoom"
	TypeJoinRoom       = "join-room"
	TypeJoinGameRoom   = "joinGameRoom"
	TypeChatMessage    = "message"
	TypeGameMessage    = "gameMessage"
	TypeLeaveRoom      = "leave-room"
	TypeRemoveRoom     = "removeRoom"
)

// Outbound event types.
const (
	TypeConnected          = "connected"
	TypeCreateRoomResponse = "createRoomResponse"
	TypeAvailableRooms     = "availableRooms"
	TypeMessageHistory     = "messageHistory"
	TypeUserJoined         = "user_joined"
	TypeUserLeft           = "user_left"
	TypeJoinRoomError      = "joinRoomError"
	TypeNewMessage         = "newMessage"
	TypeMessageError       = "messageError"
	TypeRoomRemoved        = "room_removed"
	TypeRoomRemovedError   = "room_removed_error"
)

// CreateRoomEvent - inbound chat room creation.
type CreateRoomEvent struct {
	Name string `json:"name"`
}

// CreateGameRoomEvent - inbound game room creation.
type CreateGameRoomEvent struct {
	RoomName string `json:"roomName"`
	GameType string `json:"gameType"`
}

// JoinRoomEvent - inbound chat room join.
type JoinRoomEvent struct {
	Room     string `json:"room"`
	UserName string `json:"userName"`
}

// JoinGameRoomEvent - inbound game room join.
type JoinGameRoomEvent struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
}

// ChatMessageEvent - inbound message, chat or game flavored depending on
// the envelope type.
type ChatMessageEvent struct {
	Room    string `json:"room"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// LeaveRoomEvent - inbound leave.
type LeaveRoomEvent struct {
	Room     string `json:"room"`
	UserName string `json:"userName"`
}

// RemoveRoomEvent - inbound room removal.
type RemoveRoomEvent struct {
	RoomName string `json:"roomName"`
}

// ConnectedEvent greets a fresh connection with its assigned id.
type ConnectedEvent struct {
	ConnectionID string `json:"connectionId"`
}

// CreateRoomResponseEvent reports the create outcome to the initiator only.
type CreateRoomResponseEvent struct {
	Success bool   `json:"success"`
	Room    string `json:"room,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AvailableRoomsEvent carries the room list of one type to every connection.
type AvailableRoomsEvent struct {
	Type  models.RoomType `json:"type"`
	Rooms []string        `json:"rooms"`
}

// MessageHistoryEvent delivers persisted history to a joining connection.
type MessageHistoryEvent struct {
	Room     string            `json:"room"`
	Messages []*models.Message `json:"messages"`
}

// UserEvent - user_joined / user_left notifications inside a room.
type UserEvent struct {
	Room     string `json:"room"`
	UserName string `json:"userName"`
}

// NewMessageEvent - a routed chat message, broadcast to the room
// including the sender.
type NewMessageEvent struct {
	Room      string    `json:"room"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// GameMessageEvent - a routed game message, broadcast to the room
// excluding the sender.
type GameMessageEvent struct {
	Room    string `json:"room"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// RoomErrorEvent - per-room failure reported to one connection
// (joinRoomError, messageError, room_removed_error).
type RoomErrorEvent struct {
	Room  string `json:"room"`
	Error string `json:"error"`
}

// RoomRemovedEvent notifies members that their room is gone.
type RoomRemovedEvent struct {
	Room string `json:"room"`
}
