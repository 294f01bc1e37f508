package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nkarpov/roomcast/internal/application/constant"
	"github.com/nkarpov/roomcast/internal/application/metric"
	"github.com/nkarpov/roomcast/internal/domain"
	"github.com/nkarpov/roomcast/internal/domain/events"
	"github.com/nkarpov/roomcast/internal/domain/models"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
	"github.com/nkarpov/roomcast/internal/infra/adapters/postgres/repository"
)

// Routing outcomes for the messages_routed metric.
const (
	outcomeDelivered = "delivered"
	outcomeDropped   = "dropped"
	outcomeFailed    = "failed"
)

// EventRouter dispatches every connection-level event: room creation,
// join/leave, message routing, removal. All errors it produces are
// connection-scoped; a failing operation is reported to its initiator
// and never disturbs other connections.
type EventRouter interface {
	// HandleConnect greets a new connection and sends it the current
	// room lists.
	HandleConnect(ctx context.Context, connID uuid.UUID)

	// HandleDisconnect drops every membership of the connection.
	HandleDisconnect(ctx context.Context, connID uuid.UUID)

	// HandleEvent routes one inbound envelope to its handler. Unknown
	// event types are an error for the caller to log.
	HandleEvent(ctx context.Context, connID uuid.UUID, msg *events.Message) error
}

type eventHandler func(ctx context.Context, connID uuid.UUID, data json.RawMessage) error

type eventRouter struct {
	registry       RoomRegistry
	membershipRepo memory.MembershipRepository
	roomRepo       repository.RoomRepository
	broadcaster    Broadcaster

	handlers map[string]eventHandler
}

func NewEventRouter(
	registry RoomRegistry,
	membershipRepo memory.MembershipRepository,
	roomRepo repository.RoomRepository,
	broadcaster Broadcaster,
) EventRouter {
	r := &eventRouter{
		registry:       registry,
		membershipRepo: membershipRepo,
		roomRepo:       roomRepo,
		broadcaster:    broadcaster,
	}

	r.handlers = map[string]eventHandler{
		events.TypeCreateRoom:     r.handleCreateRoom,
		events.TypeCreateGameRoom: r.handleCreateGameRoom,
		events.TypeJoinRoom:       r.handleJoinRoom,
		events.TypeJoinGameRoom:   r.handleJoinGameRoom,
		events.TypeChatMessage:    r.handleChatMessage,
		events.TypeGameMessage:    r.handleGameMessage,
		events.TypeLeaveRoom:      r.handleLeaveRoom,
		events.TypeRemoveRoom:     r.handleRemoveRoom,
	}

	return r
}

func (r *eventRouter) HandleConnect(ctx context.Context, connID uuid.UUID) {
	r.broadcaster.ToOne(connID, events.TypeConnected, events.ConnectedEvent{
		ConnectionID: connID.String(),
	})

	for _, roomType := range []models.RoomType{models.RoomTypeChat, models.RoomTypeGame} {
		rooms, err := r.registry.List(ctx, roomType)
		if err != nil {
			slog.Error("list rooms on connect", slog.Any(constant.Error, err))
			continue
		}

		r.broadcaster.ToOne(connID, events.TypeAvailableRooms, events.AvailableRoomsEvent{
			Type:  roomType,
			Rooms: rooms,
		})
	}
}

func (r *eventRouter) HandleDisconnect(ctx context.Context, connID uuid.UUID) {
	left := r.membershipRepo.LeaveAll(ctx, connID)
	if len(left) > 0 {
		slog.Info(
			"dropped memberships on disconnect",
			slog.Any(constant.ConnectionID, connID),
			slog.Int("rooms", len(left)),
		)
	}
}

func (r *eventRouter) HandleEvent(ctx context.Context, connID uuid.UUID, msg *events.Message) error {
	handler, ok := r.handlers[msg.Type]
	if !ok {
		return fmt.Errorf("unknown event type %q", msg.Type)
	}

	return handler(ctx, connID, msg.Data)
}

func (r *eventRouter) handleCreateRoom(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.CreateRoomEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal create room event: %w", err)
	}

	room, err := r.registry.Create(ctx, event.Name, models.RoomTypeChat)
	if err != nil {
		r.broadcaster.ToOne(connID, events.TypeCreateRoomResponse, events.CreateRoomResponseEvent{
			Success: false,
			Error:   createErrorText(err),
		})

		return nil
	}

	r.membershipRepo.Join(ctx, connID, room.Name)

	r.broadcaster.ToOne(connID, events.TypeCreateRoomResponse, events.CreateRoomResponseEvent{
		Success: true,
		Room:    room.Name,
	})

	r.broadcastRoomList(ctx, models.RoomTypeChat)

	return nil
}

func (r *eventRouter) handleCreateGameRoom(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.CreateGameRoomEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal create game room event: %w", err)
	}

	room, err := r.registry.Create(ctx, event.RoomName, models.RoomTypeGame)
	if err != nil {
		r.broadcaster.ToOne(connID, events.TypeCreateRoomResponse, events.CreateRoomResponseEvent{
			Success: false,
			Error:   createErrorText(err),
		})

		return nil
	}

	r.membershipRepo.Join(ctx, connID, room.Name)

	// Companion chat room is best-effort: a name collision or store
	// failure leaves the game room standing without one.
	companion := models.CompanionName(room.Name)

	if _, err = r.registry.Create(ctx, companion, models.RoomTypeChat); err != nil {
		slog.Warn(
			"companion chat room not created",
			slog.String(constant.Room, companion),
			slog.Any(constant.Error, err),
		)
	} else {
		r.membershipRepo.Join(ctx, connID, companion)
	}

	r.broadcaster.ToOne(connID, events.TypeCreateRoomResponse, events.CreateRoomResponseEvent{
		Success: true,
		Room:    room.Name,
	})

	r.broadcastRoomList(ctx, models.RoomTypeGame)

	return nil
}

func (r *eventRouter) handleJoinRoom(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.JoinRoomEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal join room event: %w", err)
	}

	if err := r.checkRoomType(ctx, event.Room, models.RoomTypeChat); err != nil {
		r.broadcaster.ToOne(connID, events.TypeJoinRoomError, events.RoomErrorEvent{
			Room:  event.Room,
			Error: joinErrorText(err),
		})

		return nil
	}

	// History is read before joining so a store failure surfaces as a
	// join error instead of a half-joined state.
	history, err := r.roomRepo.MessagesByRoom(ctx, event.Room)
	if err != nil {
		slog.Error("load message history", slog.String(constant.Room, event.Room), slog.Any(constant.Error, err))

		r.broadcaster.ToOne(connID, events.TypeJoinRoomError, events.RoomErrorEvent{
			Room:  event.Room,
			Error: "Failed to load message history",
		})

		return nil
	}

	r.membershipRepo.Join(ctx, connID, event.Room)

	r.broadcaster.ToOne(connID, events.TypeMessageHistory, events.MessageHistoryEvent{
		Room:     event.Room,
		Messages: history,
	})

	r.broadcaster.ToRoom(ctx, event.Room, events.TypeUserJoined, events.UserEvent{
		Room:     event.Room,
		UserName: event.UserName,
	}, connID)

	return nil
}

func (r *eventRouter) handleJoinGameRoom(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.JoinGameRoomEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal join game room event: %w", err)
	}

	if err := r.checkRoomType(ctx, event.RoomName, models.RoomTypeGame); err != nil {
		r.broadcaster.ToOne(connID, events.TypeJoinRoomError, events.RoomErrorEvent{
			Room:  event.RoomName,
			Error: joinErrorText(err),
		})

		return nil
	}

	r.membershipRepo.Join(ctx, connID, event.RoomName)

	r.broadcaster.ToRoom(ctx, event.RoomName, events.TypeUserJoined, events.UserEvent{
		Room:     event.RoomName,
		UserName: event.UserName,
	}, connID)

	return nil
}

// handleChatMessage validates, persists, then broadcasts. Persistence is
// fail-closed: a failed insert is reported to the sender and the message
// is not delivered, so delivered history never diverges from stored
// history.
func (r *eventRouter) handleChatMessage(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.ChatMessageEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal chat message event: %w", err)
	}

	roomType, err := r.registry.GetType(ctx, event.Room)
	if err != nil {
		metric.MessageRouted(string(models.RoomTypeChat), outcomeFailed)

		r.broadcaster.ToOne(connID, events.TypeMessageError, events.RoomErrorEvent{
			Room:  event.Room,
			Error: messageErrorText(err),
		})

		return nil
	}

	// A room speaks only its own type. Mismatches are dropped without
	// notice, mirroring the moderation rule of the event surface.
	if roomType != models.RoomTypeChat {
		metric.MessageRouted(string(models.RoomTypeChat), outcomeDropped)
		return nil
	}

	msg := &models.Message{
		RoomName:  event.Room,
		Sender:    event.Sender,
		Body:      event.Message,
		Type:      models.RoomTypeChat,
		CreatedAt: time.Now(),
	}

	if err = r.roomRepo.InsertMessage(ctx, msg); err != nil {
		slog.Error("persist chat message", slog.String(constant.Room, event.Room), slog.Any(constant.Error, err))

		metric.MessageRouted(string(models.RoomTypeChat), outcomeFailed)

		r.broadcaster.ToOne(connID, events.TypeMessageError, events.RoomErrorEvent{
			Room:  event.Room,
			Error: "Failed to send message",
		})

		return nil
	}

	metric.MessageRouted(string(models.RoomTypeChat), outcomeDelivered)

	r.broadcaster.ToRoom(ctx, event.Room, events.TypeNewMessage, events.NewMessageEvent{
		Room:      event.Room,
		Message:   event.Message,
		Sender:    event.Sender,
		CreatedAt: msg.CreatedAt,
	}, uuid.Nil)

	return nil
}

// handleGameMessage broadcasts to the room excluding the sender, who
// already holds local authoritative state. Game messages are ephemeral
// and never persisted.
func (r *eventRouter) handleGameMessage(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.ChatMessageEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal game message event: %w", err)
	}

	roomType, err := r.registry.GetType(ctx, event.Room)
	if err != nil {
		metric.MessageRouted(string(models.RoomTypeGame), outcomeFailed)

		r.broadcaster.ToOne(connID, events.TypeMessageError, events.RoomErrorEvent{
			Room:  event.Room,
			Error: messageErrorText(err),
		})

		return nil
	}

	if roomType != models.RoomTypeGame {
		metric.MessageRouted(string(models.RoomTypeGame), outcomeDropped)
		return nil
	}

	metric.MessageRouted(string(models.RoomTypeGame), outcomeDelivered)

	r.broadcaster.ToRoom(ctx, event.Room, events.TypeGameMessage, events.GameMessageEvent{
		Room:    event.Room,
		Message: event.Message,
		Sender:  event.Sender,
	}, connID)

	return nil
}

func (r *eventRouter) handleLeaveRoom(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.LeaveRoomEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal leave room event: %w", err)
	}

	r.membershipRepo.Leave(ctx, connID, event.Room)

	r.broadcaster.ToRoom(ctx, event.Room, events.TypeUserLeft, events.UserEvent{
		Room:     event.Room,
		UserName: event.UserName,
	}, connID)

	return nil
}

func (r *eventRouter) handleRemoveRoom(ctx context.Context, connID uuid.UUID, data json.RawMessage) error {
	var event events.RemoveRoomEvent

	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshal remove room event: %w", err)
	}

	roomType, err := r.registry.GetType(ctx, event.RoomName)
	if err != nil {
		r.broadcaster.ToOne(connID, events.TypeRoomRemovedError, events.RoomErrorEvent{
			Room:  event.RoomName,
			Error: removeErrorText(err),
		})

		return nil
	}

	dropped, err := r.registry.Remove(ctx, event.RoomName)
	if err != nil {
		r.broadcaster.ToOne(connID, events.TypeRoomRemovedError, events.RoomErrorEvent{
			Room:  event.RoomName,
			Error: removeErrorText(err),
		})

		return nil
	}

	// Memberships are gone already; notify the ex-members directly.
	r.broadcaster.ToConns(dropped, events.TypeRoomRemoved, events.RoomRemovedEvent{
		Room: event.RoomName,
	})

	r.broadcastRoomList(ctx, roomType)

	return nil
}

func (r *eventRouter) broadcastRoomList(ctx context.Context, roomType models.RoomType) {
	rooms, err := r.registry.List(ctx, roomType)
	if err != nil {
		slog.Error("list rooms for broadcast", slog.Any(constant.RoomType, roomType), slog.Any(constant.Error, err))
		return
	}

	r.broadcaster.ToAll(events.TypeAvailableRooms, events.AvailableRoomsEvent{
		Type:  roomType,
		Rooms: rooms,
	})
}

// checkRoomType resolves the stored type and compares it to what the
// join intends.
func (r *eventRouter) checkRoomType(ctx context.Context, room string, want models.RoomType) error {
	got, err := r.registry.GetType(ctx, room)
	if err != nil {
		return err
	}

	if got != want {
		return fmt.Errorf("%w: room %q is %s, not %s", domain.ErrRoomNotFound, room, got, want)
	}

	return nil
}

func createErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomExists):
		return "Room already exists"
	case errors.Is(err, domain.ErrInvalidRoomName):
		return "Invalid room name"
	default:
		return "Failed to create room"
	}
}

func joinErrorText(err error) string {
	if errors.Is(err, domain.ErrRoomNotFound) {
		return "Room not found"
	}

	return "Failed to join room"
}

func messageErrorText(err error) string {
	if errors.Is(err, domain.ErrRoomNotFound) {
		return "Room not found"
	}

	return "Failed to send message"
}

func removeErrorText(err error) string {
	if errors.Is(err, domain.ErrRoomNotFound) {
		return "Room not found"
	}

	return "Failed to remove room"
}
