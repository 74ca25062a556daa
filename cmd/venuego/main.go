package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/venue-go/docs"
	"github.com/kirinyoku/venue-go/internal/app"
	"github.com/kirinyoku/venue-go/internal/config"
	"github.com/kirinyoku/venue-go/internal/logger"
)

// @title VenueGo API
// @version 1.0
// @description Venue booking: availability, approval, payments and dashboard stats.
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, sync, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sync() }()

	ctx := context.Background()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create application", "error", err)
		return
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application finished with error", "error", err)
	}
}
