package memory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nkarpov/roomcast/internal/application/constant"
)

const pingWriteWait = 10 * time.Second

// ConnectionWriter is the delivery side of the repository, all the
// broadcaster needs.
type ConnectionWriter interface {
	// Write delivers payload to one connection. Exactly-once attempt:
	// if the connection is gone or the write fails, the payload is
	// dropped silently.
	Write(connID uuid.UUID, payload any)

	// WriteAll delivers payload to every registered connection.
	WriteAll(payload any)
}

// WebsocketConnectionRepository tracks live connections in memory.
type WebsocketConnectionRepository interface {
	ConnectionWriter

	Add(connID uuid.UUID, conn *websocket.Conn)
	Remove(connID uuid.UUID)
	Count() int

	// Ping sends a control ping, serialized with regular writes.
	Ping(connID uuid.UUID) error
}

// safeWS serializes writes to one connection; gorilla allows a single
// concurrent writer.
type safeWS struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type wsConnectionRepository struct {
	// wsConns holds map[connection_id]*ws.conn
	wsConns map[uuid.UUID]*safeWS

	mu sync.RWMutex
}

func NewWSConnectionRepository() WebsocketConnectionRepository {
	return &wsConnectionRepository{
		wsConns: make(map[uuid.UUID]*safeWS, 10),
	}
}

func (w *wsConnectionRepository) Add(connID uuid.UUID, conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.wsConns[connID] = &safeWS{conn: conn}
}

func (w *wsConnectionRepository) Remove(connID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.wsConns, connID)
}

func (w *wsConnectionRepository) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.wsConns)
}

func (w *wsConnectionRepository) Write(connID uuid.UUID, payload any) {
	safews, ok := w.getSafeWS(connID)
	if !ok {
		// Disconnected between snapshot and delivery. Drop.
		return
	}

	safews.mu.Lock()
	defer safews.mu.Unlock()

	err := safews.conn.WriteJSON(payload)
	if err != nil {
		slog.Error("write to websocket", slog.Any(constant.ConnectionID, connID))
		return
	}
}

func (w *wsConnectionRepository) WriteAll(payload any) {
	w.mu.RLock()
	ids := make([]uuid.UUID, 0, len(w.wsConns))
	for connID := range w.wsConns {
		ids = append(ids, connID)
	}
	w.mu.RUnlock()

	for _, connID := range ids {
		w.Write(connID, payload)
	}
}

func (w *wsConnectionRepository) Ping(connID uuid.UUID) error {
	safews, ok := w.getSafeWS(connID)
	if !ok {
		return websocket.ErrCloseSent
	}

	safews.mu.Lock()
	defer safews.mu.Unlock()

	return safews.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait))
}

func (w *wsConnectionRepository) getSafeWS(connID uuid.UUID) (*safeWS, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	conn, ok := w.wsConns[connID]
	return conn, ok
}
