package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkarpov/roomcast/internal/domain/events"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
	"github.com/nkarpov/roomcast/internal/usecase"
)

func TestBroadcasterToRoomExcludesSender(t *testing.T) {
	ctx := context.Background()

	sender := uuid.New()
	a := uuid.New()
	b := uuid.New()

	membership := memory.NewMembershipRepository()
	writer := newFakeWriter(sender, a, b)
	broadcaster := usecase.NewBroadcaster(writer, membership)

	for _, connID := range []uuid.UUID{sender, a, b} {
		membership.Join(ctx, connID, "arena")
	}

	broadcaster.ToRoom(ctx, "arena", events.TypeGameMessage, events.GameMessageEvent{Room: "arena"}, sender)

	assert.Empty(t, writer.received(sender, events.TypeGameMessage))
	assert.Len(t, writer.received(a, events.TypeGameMessage), 1)
	assert.Len(t, writer.received(b, events.TypeGameMessage), 1)
}

func TestBroadcasterToRoomOnlyReachesMembers(t *testing.T) {
	ctx := context.Background()

	member := uuid.New()
	outsider := uuid.New()

	membership := memory.NewMembershipRepository()
	writer := newFakeWriter(member, outsider)
	broadcaster := usecase.NewBroadcaster(writer, membership)

	membership.Join(ctx, member, "lobby")

	broadcaster.ToRoom(ctx, "lobby", events.TypeNewMessage, events.NewMessageEvent{Room: "lobby"}, uuid.Nil)

	assert.Len(t, writer.received(member, events.TypeNewMessage), 1)
	assert.Empty(t, writer.received(outsider, events.TypeNewMessage))
}

// A connection that vanished between snapshot and delivery is dropped
// silently.
func TestBroadcasterToOneGoneConnection(t *testing.T) {
	gone := uuid.New()

	writer := newFakeWriter()
	broadcaster := usecase.NewBroadcaster(writer, memory.NewMembershipRepository())

	broadcaster.ToOne(gone, events.TypeConnected, events.ConnectedEvent{ConnectionID: gone.String()})

	assert.Empty(t, writer.received(gone, events.TypeConnected))
}

func TestBroadcasterToAll(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	writer := newFakeWriter(a, b)
	broadcaster := usecase.NewBroadcaster(writer, memory.NewMembershipRepository())

	broadcaster.ToAll(events.TypeAvailableRooms, events.AvailableRoomsEvent{Rooms: []string{"lobby"}})

	for _, connID := range []uuid.UUID{a, b} {
		got := writer.received(connID, events.TypeAvailableRooms)
		require.Len(t, got, 1)
		assert.Equal(t, []string{"lobby"}, decode[events.AvailableRoomsEvent](t, got[0]).Rooms)
	}
}
