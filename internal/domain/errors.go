package domain

import "errors"

var (
	// ErrRoomExists is returned when a create collides with an existing
	// room name. Always connection-scoped, never fatal.
	ErrRoomExists = errors.New("room already exists")

	// ErrRoomNotFound is returned for any operation referencing a room
	// the store does not know.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidRoomName rejects empty (after trimming) room names.
	ErrInvalidRoomName = errors.New("invalid room name")

	// ErrStoreFailure wraps persistence failures other than uniqueness:
	// timeouts, lost connections, constraint violations.
	ErrStoreFailure = errors.New("store failure")
)
