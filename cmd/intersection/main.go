package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intersection-worker-go/internal/api"
	"intersection-worker-go/internal/config"
	"intersection-worker-go/internal/logging"
	"intersection-worker-go/internal/services"
	"intersection-worker-go/internal/ui"
)

// @title Intersection Worker API
// @version 1.0.0
// @description Four-way signal controller that sizes green phases from camera vehicle counts
// @BasePath /
func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(out)

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogdyEnabled {
		if w, _, err := logging.StartLogdy(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to start Logdy, continuing with console logs")
		} else {
			log.Logger = log.Output(zerolog.MultiLevelWriter(out, w))
		}
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("detector", cfg.DetectorBackend).
		Bool("ui", cfg.UIEnabled).
		Bool("nats", cfg.NatsEnabled).
		Msg("Starting intersection worker")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}

	server := api.NewServer(cfg, api.Deps{
		Controller: container.Scheduler,
		Stats:      container.Stats,
		Camera:     container.Sampler,
		Display:    container.Display,
		Stream:     container.MJPEG,
	})
	if err := server.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up API server")
	}

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.UIEnabled {
		runPanel(ctx, container, quit)
	} else {
		<-quit
	}

	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Service shutdown incomplete")
	} else {
		log.Info().Msg("Shutdown complete")
	}
}

// runPanel blocks on the fyne event loop until the window closes or a
// signal arrives.
func runPanel(ctx context.Context, container *services.ServiceContainer, quit <-chan os.Signal) {
	fyneApp := app.NewWithID("io.intersection.worker")
	panel := ui.NewPanel(fyneApp, container.Scheduler, logging.NewServiceLogger(container.Config, "ui"))

	container.Bank.Attach(panel)
	container.Display.AddSurface(panel)

	events, err := container.Scheduler.Subscribe("ui", container.Config.EventBufferSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe panel to scheduler events")
	} else {
		go panel.Watch(ctx, events)
	}

	go func() {
		select {
		case <-quit:
			fyneApp.Quit()
		case <-ctx.Done():
		}
	}()

	panel.ShowAndRun()
}
