package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nkarpov/roomcast/internal/application/constant"
	"github.com/nkarpov/roomcast/internal/domain"
	"github.com/nkarpov/roomcast/internal/domain/models"
	"github.com/nkarpov/roomcast/internal/infra/adapters/postgres/repository"
	"github.com/nkarpov/roomcast/internal/infra/ports/http/dto"
)

// RoomHandler exposes a read-only REST view over rooms and history. All
// mutations go through the websocket event surface.
type RoomHandler struct {
	roomRepo repository.RoomRepository
}

func NewRoomHandler(roomRepo repository.RoomRepository) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo}
}

func (h *RoomHandler) ListRoomsHandler(c echo.Context) error {
	rooms, err := h.roomRepo.ListAll(c.Request().Context())
	if err != nil {
		slog.Error("list rooms", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list rooms"})
	}

	typeFilter := models.RoomType(c.QueryParam("type"))
	if typeFilter != "" && !typeFilter.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid room type"})
	}

	resp := dto.ListRoomsResponse{
		Rooms: make([]dto.RoomResponse, 0, len(rooms)),
	}

	for _, room := range rooms {
		if typeFilter != "" && room.Type != typeFilter {
			continue
		}

		resp.Rooms = append(resp.Rooms, dto.NewRoomResponseFromModel(room))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *RoomHandler) MessageHistoryHandler(c echo.Context) error {
	name := c.Param("name")

	if _, err := h.roomRepo.GetByName(c.Request().Context(), name); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
		}

		slog.Error("get room", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get room"})
	}

	messages, err := h.roomRepo.MessagesByRoom(c.Request().Context(), name)
	if err != nil {
		slog.Error("load message history", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
	}

	return c.JSON(http.StatusOK, dto.MessageHistoryResponse{
		Room:     name,
		Messages: messages,
	})
}
