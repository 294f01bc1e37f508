package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MembershipRepository tracks which live connections belong to which
// room. Purely in-memory; a membership never outlives its connection.
type MembershipRepository interface {
	// Join adds a connection to a room. Joining twice is a no-op.
	Join(ctx context.Context, connID uuid.UUID, room string)

	// Leave removes a connection from a room. Leaving a room not
	// joined silently succeeds.
	Leave(ctx context.Context, connID uuid.UUID, room string)

	// LeaveAll removes the connection from every room it belongs to.
	// Invoked on disconnect.
	LeaveAll(ctx context.Context, connID uuid.UUID) []string

	// MembersOf returns the current members of a room.
	MembersOf(ctx context.Context, room string) []uuid.UUID

	// DropRoom removes every member of a room and returns who was
	// dropped. Invoked when the room itself is removed.
	DropRoom(ctx context.Context, room string) []uuid.UUID
}

type membershipRepository struct {
	// rooms: room -> set of connection ids
	rooms map[string]map[uuid.UUID]struct{}
	// conns: connection id -> set of rooms, for O(1) LeaveAll
	conns map[uuid.UUID]map[string]struct{}

	mu sync.RWMutex
}

func NewMembershipRepository() MembershipRepository {
	return &membershipRepository{
		rooms: make(map[string]map[uuid.UUID]struct{}),
		conns: make(map[uuid.UUID]map[string]struct{}),
	}
}

func (r *membershipRepository) Join(_ context.Context, connID uuid.UUID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[uuid.UUID]struct{})
	}

	r.rooms[room][connID] = struct{}{}

	if _, ok := r.conns[connID]; !ok {
		r.conns[connID] = make(map[string]struct{})
	}

	r.conns[connID][room] = struct{}{}
}

func (r *membershipRepository) Leave(_ context.Context, connID uuid.UUID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connID, room)
}

func (r *membershipRepository) LeaveAll(_ context.Context, connID uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string

	for room := range r.conns[connID] {
		left = append(left, room)
		r.leaveLocked(connID, room)
	}

	return left
}

func (r *membershipRepository) MembersOf(_ context.Context, room string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]uuid.UUID, 0, len(r.rooms[room]))
	for connID := range r.rooms[room] {
		members = append(members, connID)
	}

	return members
}

func (r *membershipRepository) DropRoom(_ context.Context, room string) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := make([]uuid.UUID, 0, len(r.rooms[room]))

	for connID := range r.rooms[room] {
		dropped = append(dropped, connID)

		delete(r.conns[connID], room)
		if len(r.conns[connID]) == 0 {
			delete(r.conns, connID)
		}
	}

	delete(r.rooms, room)

	return dropped
}

// leaveLocked removes one membership and cleans up empty sets so the
// maps do not grow over time.
func (r *membershipRepository) leaveLocked(connID uuid.UUID, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}

	if rooms, ok := r.conns[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.conns, connID)
		}
	}
}
