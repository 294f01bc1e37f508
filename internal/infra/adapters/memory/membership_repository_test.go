package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
)

func TestMembershipJoinIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMembershipRepository()

	connID := uuid.New()

	repo.Join(ctx, connID, "lobby")
	repo.Join(ctx, connID, "lobby")

	assert.Len(t, repo.MembersOf(ctx, "lobby"), 1)

	// One leave after a double join fully removes the membership.
	repo.Leave(ctx, connID, "lobby")

	assert.Empty(t, repo.MembersOf(ctx, "lobby"))
}

func TestMembershipLeaveUnjoinedRoomIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMembershipRepository()

	repo.Leave(ctx, uuid.New(), "nowhere")

	assert.Empty(t, repo.MembersOf(ctx, "nowhere"))
}

func TestMembershipLeaveAll(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMembershipRepository()

	connID := uuid.New()
	other := uuid.New()

	repo.Join(ctx, connID, "lobby")
	repo.Join(ctx, connID, "arena")
	repo.Join(ctx, other, "lobby")

	left := repo.LeaveAll(ctx, connID)

	assert.ElementsMatch(t, []string{"lobby", "arena"}, left)
	assert.ElementsMatch(t, []uuid.UUID{other}, repo.MembersOf(ctx, "lobby"))
	assert.Empty(t, repo.MembersOf(ctx, "arena"))
}

func TestMembershipDropRoom(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMembershipRepository()

	a := uuid.New()
	b := uuid.New()

	repo.Join(ctx, a, "lobby")
	repo.Join(ctx, b, "lobby")
	repo.Join(ctx, a, "arena")

	dropped := repo.DropRoom(ctx, "lobby")

	assert.ElementsMatch(t, []uuid.UUID{a, b}, dropped)
	assert.Empty(t, repo.MembersOf(ctx, "lobby"))
	// Unrelated memberships survive.
	assert.ElementsMatch(t, []uuid.UUID{a}, repo.MembersOf(ctx, "arena"))
}

func TestMembershipConcurrentJoinLeave(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewMembershipRepository()

	const n = 50

	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup

	for _, connID := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			repo.Join(ctx, id, "lobby")
			repo.Join(ctx, id, "arena")
			repo.Leave(ctx, id, "arena")
		}(connID)
	}

	wg.Wait()

	assert.Len(t, repo.MembersOf(ctx, "lobby"), n)
	assert.Empty(t, repo.MembersOf(ctx, "arena"))
}
