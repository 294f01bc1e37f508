package usecase_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkarpov/roomcast/internal/domain"
	"github.com/nkarpov/roomcast/internal/domain/events"
	"github.com/nkarpov/roomcast/internal/domain/models"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
	"github.com/nkarpov/roomcast/internal/usecase"
)

// fakeStore implements repository.RoomRepository in memory. The mutex
// makes check-then-insert atomic, standing in for the primary key that
// closes the create race in the real store.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]*models.Room
	messages []*models.Message
	nextID   int64

	failInsertMessage bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[string]*models.Room)}
}

func (s *fakeStore) Create(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.Name]; ok {
		return domain.ErrRoomExists
	}

	s.rooms[room.Name] = room

	return nil
}

func (s *fakeStore) GetByName(_ context.Context, name string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[name]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return room, nil
}

func (s *fakeStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[name]; !ok {
		return domain.ErrRoomNotFound
	}

	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.RoomName != name {
			kept = append(kept, msg)
		}
	}
	s.messages = kept

	delete(s.rooms, name)

	return nil
}

func (s *fakeStore) ListByType(_ context.Context, roomType models.RoomType) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, room := range s.rooms {
		if room.Type == roomType {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]*models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })

	return rooms, nil
}

func (s *fakeStore) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failInsertMessage {
		return domain.ErrStoreFailure
	}

	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)

	return nil
}

func (s *fakeStore) MessagesByRoom(_ context.Context, room string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Message
	for _, msg := range s.messages {
		if msg.RoomName == room {
			out = append(out, msg)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// fakeWriter records every envelope delivered to each registered
// connection.
type fakeWriter struct {
	mu      sync.Mutex
	conns   map[uuid.UUID]bool
	written map[uuid.UUID][]*events.Message
}

func newFakeWriter(conns ...uuid.UUID) *fakeWriter {
	w := &fakeWriter{
		conns:   make(map[uuid.UUID]bool),
		written: make(map[uuid.UUID][]*events.Message),
	}

	for _, connID := range conns {
		w.conns[connID] = true
	}

	return w
}

func (w *fakeWriter) Write(connID uuid.UUID, payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.conns[connID] {
		return
	}

	w.written[connID] = append(w.written[connID], payload.(*events.Message))
}

func (w *fakeWriter) WriteAll(payload any) {
	w.mu.Lock()
	ids := make([]uuid.UUID, 0, len(w.conns))
	for connID := range w.conns {
		ids = append(ids, connID)
	}
	w.mu.Unlock()

	for _, connID := range ids {
		w.Write(connID, payload)
	}
}

func (w *fakeWriter) disconnect(connID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.conns, connID)
}

// received filters the envelopes a connection got by event type.
func (w *fakeWriter) received(connID uuid.UUID, eventType string) []*events.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []*events.Message
	for _, msg := range w.written[connID] {
		if msg.Type == eventType {
			out = append(out, msg)
		}
	}

	return out
}

func decode[T any](t *testing.T, msg *events.Message) T {
	t.Helper()

	var payload T
	require.NoError(t, json.Unmarshal(msg.Data, &payload))

	return payload
}

func envelope(t *testing.T, eventType string, payload any) *events.Message {
	t.Helper()

	msg, err := events.NewMessage(eventType, payload)
	require.NoError(t, err)

	return msg
}

// fixture wires real registry/broadcaster/router over the fakes.
type fixture struct {
	store      *fakeStore
	membership memory.MembershipRepository
	writer     *fakeWriter

	registry usecase.RoomRegistry
	router   usecase.EventRouter
}

func newFixture(conns ...uuid.UUID) *fixture {
	store := newFakeStore()
	membership := memory.NewMembershipRepository()
	writer := newFakeWriter(conns...)

	registry := usecase.NewRoomRegistry(store, membership)
	broadcaster := usecase.NewBroadcaster(writer, membership)
	router := usecase.NewEventRouter(registry, membership, store, broadcaster)

	return &fixture{
		store:      store,
		membership: membership,
		writer:     writer,
		registry:   registry,
		router:     router,
	}
}
