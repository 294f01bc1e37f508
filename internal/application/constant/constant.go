package constant

// Shared slog attribute keys.
const (
	Error        = "error"
	ConnectionID = "connection_id"
	Room         = "room"
	RoomType     = "room_type"
	EventType    = "event_type"
)
