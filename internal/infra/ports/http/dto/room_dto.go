package dto

import (
	"time"

	"github.com/nkarpov/roomcast/internal/domain/models"
)

type RoomResponse struct {
	Name      string          `json:"name"`
	Type      models.RoomType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewRoomResponseFromModel(room *models.Room) RoomResponse {
	return RoomResponse{
		Name:      room.Name,
		Type:      room.Type,
		CreatedAt: room.CreatedAt,
	}
}

type ListRoomsResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

type MessageHistoryResponse struct {
	Room     string            `json:"room"`
	Messages []*models.Message `json:"messages"`
}
