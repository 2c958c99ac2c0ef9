package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/doorwatch-io/doorwatch/internal/api"
	"github.com/doorwatch-io/doorwatch/internal/camera"
	"github.com/doorwatch-io/doorwatch/internal/config"
	"github.com/doorwatch-io/doorwatch/internal/engine/factory"
	"github.com/doorwatch-io/doorwatch/internal/identity"
	"github.com/doorwatch-io/doorwatch/internal/metrics"
	"github.com/doorwatch-io/doorwatch/internal/notify"
	"github.com/doorwatch-io/doorwatch/internal/status"
	"github.com/doorwatch-io/doorwatch/internal/store"
	"github.com/doorwatch-io/doorwatch/internal/watcher"
	"github.com/doorwatch-io/doorwatch/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Doorwatch",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("engine", cfg.EngineType),
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Camera and frame source
	source, err := camera.NewFileSource(cfg.FrameDir)
	if err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}
	cam := camera.New(source)

	// Recognition engine and identity store
	engineFactory, err := factory.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	identityStore, err := store.Open(ctx, engineFactory, filepath.Join(cfg.DataDir, "faces.meta"), logger)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer func() {
		if err := identityStore.Close(); err != nil {
			logger.Warn("close identity store", slog.Any("error", err))
		}
	}()
	metrics.SetEnrolledFaces(identityStore.EnrolledCount())

	// Shared state and collaborators
	cell := identity.NewCell()
	hub := ws.NewHub()
	dispatcher := notify.NewDispatcher(notify.NewService(cfg.WebhookURL, cfg.WebhookSecret), logger)
	indicator := status.NewLogIndicator(logger)

	// Recognition loop
	recognitionWatcher := watcher.New(
		cam,
		identityStore,
		cell,
		dispatcher,
		hub,
		indicator,
		cfg.RecognitionInterval,
		cfg.NotifyCooldown,
		logger,
	)
	go recognitionWatcher.Run(ctx)

	// HTTP surface
	router := api.NewRouter(logger, &api.Dependencies{
		Store:      identityStore,
		Camera:     cam,
		Cell:       cell,
		Hub:        hub,
		Dispatcher: dispatcher,
		FrameDelay: cfg.StreamFrameDelay,
	})
	router.Setup()

	indicator.Ready()
	if cfg.NotificationsEnabled() {
		dispatcher.Enqueue(notify.NewEvent(notify.EventStartup, map[string]interface{}{
			"message": "Doorwatch started",
			"port":    cfg.Port,
			"engine":  cfg.EngineType,
		}))
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	indicator.Off()
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}
