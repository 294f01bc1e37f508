package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nkarpov/roomcast/internal/application/metric"
	"github.com/nkarpov/roomcast/internal/domain"
	"github.com/nkarpov/roomcast/internal/domain/models"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
	"github.com/nkarpov/roomcast/internal/infra/adapters/postgres/repository"
)

// RoomRegistry is the in-process authority for room existence, creation
// and removal. Creation races are closed by the store's primary key, not
// by application locks: concurrent creates of one name end with exactly
// one winner, the rest see ErrRoomExists.
type RoomRegistry interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, roomType models.RoomType) (*models.Room, error)

	// Remove deletes the room's messages, then the room row, then drops
	// all members. Returns the dropped members so the caller can still
	// notify them after their membership is gone.
	Remove(ctx context.Context, name string) ([]uuid.UUID, error)

	List(ctx context.Context, roomType models.RoomType) ([]string, error)
	GetType(ctx context.Context, name string) (models.RoomType, error)
}

type roomRegistry struct {
	roomRepo       repository.RoomRepository
	membershipRepo memory.MembershipRepository
}

func NewRoomRegistry(roomRepo repository.RoomRepository, membershipRepo memory.MembershipRepository) RoomRegistry {
	return &roomRegistry{roomRepo: roomRepo, membershipRepo: membershipRepo}
}

func (r *roomRegistry) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.roomRepo.GetByName(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("room exists check: %w", err)
	}

	return true, nil
}

func (r *roomRegistry) Create(ctx context.Context, name string, roomType models.RoomType) (*models.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidRoomName
	}

	room := models.NewRoom(name, roomType)

	if err := r.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	metric.RoomCreated(string(roomType))

	return room, nil
}

func (r *roomRegistry) Remove(ctx context.Context, name string) ([]uuid.UUID, error) {
	if err := r.roomRepo.Delete(ctx, name); err != nil {
		return nil, fmt.Errorf("remove room: %w", err)
	}

	metric.RoomRemoved()

	// Best-effort cleanup: members of a removed room do not receive
	// broadcasts addressed to it afterwards.
	return r.membershipRepo.DropRoom(ctx, name), nil
}

func (r *roomRegistry) List(ctx context.Context, roomType models.RoomType) ([]string, error) {
	names, err := r.roomRepo.ListByType(ctx, roomType)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return names, nil
}

func (r *roomRegistry) GetType(ctx context.Context, name string) (models.RoomType, error) {
	room, err := r.roomRepo.GetByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("get room type: %w", err)
	}

	return room.Type, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrRoomNotFound)
}
