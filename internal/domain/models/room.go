package models

import "time"

// RoomType separates chat rooms from game rooms. A room only ever
// routes messages of its own type.
type RoomType string

const (
	RoomTypeChat RoomType = "chat"
	RoomTypeGame RoomType = "game"
)

func (t RoomType) Valid() bool {
	return t == RoomTypeChat || t == RoomTypeGame
}

// Room is a named, typed channel. Name is the primary key; Type is
// immutable after creation.
type Room struct {
	Name      string    `json:"name" db:"name"`
	Type      RoomType  `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func NewRoom(name string, roomType RoomType) *Room {
	return &Room{
		Name:      name,
		Type:      roomType,
		CreatedAt: time.Now(),
	}
}

// CompanionName derives the chat room name created alongside a game room.
func CompanionName(gameRoom string) string {
	return gameRoom + "-chat"
}
