package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nkarpov/roomcast/internal/application/config"
	"github.com/nkarpov/roomcast/internal/application/constant"
	"github.com/nkarpov/roomcast/internal/application/metric"
	"github.com/nkarpov/roomcast/internal/domain/events"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
	"github.com/nkarpov/roomcast/internal/usecase"
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	router usecase.EventRouter

	wsConnRepo memory.WebsocketConnectionRepository
}

func NewWebSocketHandler(cfg *config.Config, router usecase.EventRouter, wsConnRepo memory.WebsocketConnectionRepository) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		router:     router,
		wsConnRepo: wsConnRepo,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	connID := uuid.New()

	h.wsConnRepo.Add(connID, ws)
	metric.IncrementWSActiveConnections()

	// Remove before the disconnect handling so no broadcast queued
	// after disconnect reaches this connection.
	defer func() {
		h.wsConnRepo.Remove(connID)
		metric.DecrementWSActiveConnections()

		h.router.HandleDisconnect(c.Request().Context(), connID)
	}()

	err = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	if err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := h.wsConnRepo.Ping(connID); err != nil {
					slog.Error("ping failed", slog.Any(constant.Error, err))
					return
				}
			case <-c.Request().Context().Done():
				return
			}
		}
	}()

	h.router.HandleConnect(c.Request().Context(), connID)

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		default:
			_, msg, err := ws.ReadMessage()
			if err != nil {
				h.handleWebsocketError(connID, err)
				return nil
			}

			event := new(events.Message)

			if err = json.Unmarshal(msg, &event); err != nil {
				slog.Error("unmarshal websocket message", slog.Any(constant.Error, err))

				continue
			}

			if err = h.router.HandleEvent(c.Request().Context(), connID, event); err != nil {
				slog.Warn(
					"handle event",
					slog.String(constant.EventType, event.Type),
					slog.Any(constant.ConnectionID, connID),
					slog.Any(constant.Error, err),
				)
			}
		}
	}
}

func (h *WebSocketHandler) handleWebsocketError(connID uuid.UUID, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info("connection closed", slog.Any(constant.ConnectionID, connID))
		default:
			slog.Error("websocket close error", slog.Any(constant.ConnectionID, connID))
		}
	} else {
		slog.Error(
			"websocket read",
			slog.Any(constant.Error, err),
		)
	}
}
