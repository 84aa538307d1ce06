package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/pcanellas/jornada-sync/config"
	"github.com/pcanellas/jornada-sync/db"
	"github.com/pcanellas/jornada-sync/handlers"
	"github.com/pcanellas/jornada-sync/notify"
	api "github.com/pcanellas/jornada-sync/routes"
	"github.com/pcanellas/jornada-sync/services"
	"github.com/pcanellas/jornada-sync/state"
	"github.com/pcanellas/jornada-sync/store"
	"github.com/pcanellas/jornada-sync/syncer"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort), slog.String("device", cfg.DeviceName))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to shared store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close store connection", slog.Any("error", err))
		}
	}()
	logger.Info("shared store connection established")

	remote := store.NewPostgres(dbConn, cfg.DatabaseURL, logger)

	snapshots, err := state.NewSnapshotStore(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to initialize snapshot store", slog.Any("error", err))
		os.Exit(1)
	}

	tournamentState := state.New(state.Config{
		Snapshots:      snapshots,
		Mirror:         remote,
		Logger:         logger,
		LiveStaleAfter: cfg.LiveStaleAfter,
	})
	tournamentState.Restore()
	logger.Info("local state restored",
		slog.String("tournament_id", tournamentState.TournamentID()),
		slog.Bool("setup_complete", tournamentState.SetupComplete()))

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(logger)
	go hub.Run(rootCtx)

	engine := syncer.New(syncer.Config{
		Store:       remote,
		State:       tournamentState,
		Logger:      logger,
		PointerPoll: cfg.PointerPoll,
		MatchPoll:   cfg.MatchPoll,
		LivePoll:    cfg.LivePoll,
		OnReset: func() {
			hub.BroadcastReload(fmt.Sprintf("%d", time.Now().UnixNano()))
		},
		OnChange: func() {
			hub.Broadcast("state", nil)
		},
	})
	go func() {
		if err := engine.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reconciliation engine stopped", slog.Any("error", err))
		}
	}()
	logger.Info("reconciliation engine started")

	sessionService := services.NewSessionService(remote, tournamentState, hub, logger)

	sessionHandler := handlers.NewSessionHandler(sessionService, tournamentState)
	wsHandler := handlers.NewWebSocketHandler(hub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, sessionHandler, wsHandler, cfg.CORSOrigin)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting table agent", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("table agent exited")
}
