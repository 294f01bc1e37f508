package models

import "time"

// Message is a persisted chat line. Game messages are ephemeral and are
// never stored, so every row carries type "chat" in practice; the column
// exists to keep the row self-describing.
type Message struct {
	ID        int64     `json:"id" db:"id"`
	RoomName  string    `json:"room" db:"room_name"`
	Sender    string    `json:"sender" db:"sender"`
	Body      string    `json:"body" db:"body"`
	Type      RoomType  `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
