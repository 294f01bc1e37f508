package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nkarpov/roomcast/internal/application/constant"
	"github.com/nkarpov/roomcast/internal/application/metric"
	"github.com/nkarpov/roomcast/internal/domain/events"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
)

// Broadcaster fans events out to currently connected members. Delivery
// is at-least-once for connections present when the fan-out starts; a
// connection joining a room during fan-out may or may not receive the
// event. That window is inherent to snapshotting membership at call
// time and is left open.
type Broadcaster interface {
	// ToOne sends one event to one connection. A gone connection is
	// dropped silently, no retry.
	ToOne(connID uuid.UUID, eventType string, payload any)

	// ToConns sends one event to an explicit connection set.
	ToConns(connIDs []uuid.UUID, eventType string, payload any)

	// ToRoom sends one event to the room's members as of now. Pass
	// uuid.Nil as exclude to reach everyone.
	ToRoom(ctx context.Context, room string, eventType string, payload any, exclude uuid.UUID)

	// ToAll sends one event to every connection. Used for room-list
	// change notifications.
	ToAll(eventType string, payload any)
}

type broadcaster struct {
	connWriter     memory.ConnectionWriter
	membershipRepo memory.MembershipRepository
}

func NewBroadcaster(connWriter memory.ConnectionWriter, membershipRepo memory.MembershipRepository) Broadcaster {
	return &broadcaster{connWriter: connWriter, membershipRepo: membershipRepo}
}

func (b *broadcaster) ToOne(connID uuid.UUID, eventType string, payload any) {
	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		slog.Error("marshal event", slog.String(constant.EventType, eventType), slog.Any(constant.Error, err))
		return
	}

	metric.BroadcastDeliveries(1)

	b.connWriter.Write(connID, msg)
}

func (b *broadcaster) ToConns(connIDs []uuid.UUID, eventType string, payload any) {
	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		slog.Error("marshal event", slog.String(constant.EventType, eventType), slog.Any(constant.Error, err))
		return
	}

	metric.BroadcastDeliveries(len(connIDs))

	for _, connID := range connIDs {
		b.connWriter.Write(connID, msg)
	}
}

func (b *broadcaster) ToRoom(ctx context.Context, room string, eventType string, payload any, exclude uuid.UUID) {
	members := b.membershipRepo.MembersOf(ctx, room)

	targets := members[:0]
	for _, connID := range members {
		if connID == exclude {
			continue
		}

		targets = append(targets, connID)
	}

	b.ToConns(targets, eventType, payload)
}

func (b *broadcaster) ToAll(eventType string, payload any) {
	msg, err := events.NewMessage(eventType, payload)
	if err != nil {
		slog.Error("marshal event", slog.String(constant.EventType, eventType), slog.Any(constant.Error, err))
		return
	}

	b.connWriter.WriteAll(msg)
}
