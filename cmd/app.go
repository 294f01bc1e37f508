package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nkarpov/roomcast/internal/application/config"
	"github.com/nkarpov/roomcast/internal/application/constant"
	"github.com/nkarpov/roomcast/internal/application/metric"
	"github.com/nkarpov/roomcast/internal/infra/adapters/memory"
	"github.com/nkarpov/roomcast/internal/infra/adapters/postgres"
	"github.com/nkarpov/roomcast/internal/infra/adapters/postgres/repository"
	"github.com/nkarpov/roomcast/internal/infra/ports/http/handlers"
	"github.com/nkarpov/roomcast/internal/infra/ports/http/server"
	"github.com/nkarpov/roomcast/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	// The store is the only process-wide dependency: failing to reach
	// it at startup is fatal, per-call failures later are not.
	dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		slog.Error("connect to postgres", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer dbConn.Close()

	roomRepo := repository.NewRoomRepo(dbConn)
	membershipRepo := memory.NewMembershipRepository()
	wsConnRepo := memory.NewWSConnectionRepository()

	registry := usecase.NewRoomRegistry(roomRepo, membershipRepo)
	broadcaster := usecase.NewBroadcaster(wsConnRepo, membershipRepo)
	router := usecase.NewEventRouter(registry, membershipRepo, roomRepo, broadcaster)

	roomHandler := handlers.NewRoomHandler(roomRepo)
	wsHandler := handlers.NewWebSocketHandler(cfg, router, wsConnRepo)

	echoSrv := server.New(roomHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
