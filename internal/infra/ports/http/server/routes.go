package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nkarpov/roomcast/internal/infra/ports/http/handlers"
	"github.com/nkarpov/roomcast/internal/infra/ports/http/middleware"
)

func New(
	roomHandler *handlers.RoomHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	api := e.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ws", wsHandler.Handle)

			v1.GET("/rooms", roomHandler.ListRoomsHandler)
			v1.GET("/rooms/:name/messages", roomHandler.MessageHistoryHandler)
		}
	}

	e.Static("/", "web")

	return e
}
