package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/nkarpov/roomcast/internal/domain"
	"github.com/nkarpov/roomcast/internal/domain/models"
)

// queryTimeout bounds every store call so a stuck connection surfaces as
// a StoreFailure instead of stalling the event stream.
const queryTimeout = 5 * time.Second

// RoomRepository is the store adapter over the rooms and messages tables.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByName(ctx context.Context, name string) (*models.Room, error)
	Delete(ctx context.Context, name string) error
	ListByType(ctx context.Context, roomType models.RoomType) ([]string, error)
	ListAll(ctx context.Context) ([]*models.Room, error)

	InsertMessage(ctx context.Context, msg *models.Message) error
	MessagesByRoom(ctx context.Context, room string) ([]*models.Message, error)
}

type roomRepo struct {
	db *sqlx.DB
}

func NewRoomRepo(db *sqlx.DB) RoomRepository {
	return &roomRepo{db: db}
}

// Create inserts the room row. The primary key on name is the sole
// race-closer for concurrent creates: a unique violation maps to
// ErrRoomExists, everything else to ErrStoreFailure.
func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(
		ctx,
		"INSERT INTO rooms (name, type, created_at) VALUES ($1, $2, $3)",
		room.Name,
		room.Type,
		room.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoomExists
		}

		return fmt.Errorf("%w: insert room: %w", domain.ErrStoreFailure, err)
	}

	return nil
}

func (r *roomRepo) GetByName(ctx context.Context, name string) (*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var room models.Room

	err := r.db.GetContext(ctx, &room, "SELECT name, type, created_at FROM rooms WHERE name = $1", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}

		return nil, fmt.Errorf("%w: get room: %w", domain.ErrStoreFailure, err)
	}

	return &room, nil
}

// Delete removes messages before the room row, in one transaction, so a
// reader never observes orphaned messages.
func (r *roomRepo) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", domain.ErrStoreFailure, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE room_name = $1", name); err != nil {
		return fmt.Errorf("%w: delete messages: %w", domain.ErrStoreFailure, err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM rooms WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("%w: delete room: %w", domain.ErrStoreFailure, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", domain.ErrStoreFailure, err)
	}

	if affected == 0 {
		return domain.ErrRoomNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrStoreFailure, err)
	}

	return nil
}

// ListByType returns room names ordered by name, so repeated calls agree
// on ordering.
func (r *roomRepo) ListByType(ctx context.Context, roomType models.RoomType) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var names []string

	err := r.db.SelectContext(ctx, &names, "SELECT name FROM rooms WHERE type = $1 ORDER BY name", roomType)
	if err != nil {
		return nil, fmt.Errorf("%w: list rooms: %w", domain.ErrStoreFailure, err)
	}

	return names, nil
}

func (r *roomRepo) ListAll(ctx context.Context) ([]*models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rooms []*models.Room

	err := r.db.SelectContext(ctx, &rooms, "SELECT name, type, created_at FROM rooms ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: list all rooms: %w", domain.ErrStoreFailure, err)
	}

	return rooms, nil
}

func (r *roomRepo) InsertMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRowxContext(
		ctx,
		`INSERT INTO messages (room_name, sender, body, type, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		msg.RoomName,
		msg.Sender,
		msg.Body,
		msg.Type,
		msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("%w: insert message: %w", domain.ErrStoreFailure, err)
	}

	return nil
}

// MessagesByRoom returns history in created_at order; id breaks ties in
// insertion order.
func (r *roomRepo) MessagesByRoom(ctx context.Context, room string) ([]*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var messages []*models.Message

	err := r.db.SelectContext(
		ctx,
		&messages,
		`SELECT id, room_name, sender, body, type, created_at
		 FROM messages
		 WHERE room_name = $1
		 ORDER BY created_at, id`,
		room,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: select messages: %w", domain.ErrStoreFailure, err)
	}

	return messages, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
