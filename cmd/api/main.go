package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/FileVault/internal/api"
	"github.com/dharsanguruparan/FileVault/internal/app"
	"github.com/dharsanguruparan/FileVault/internal/config"
	"github.com/dharsanguruparan/FileVault/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	deps, err := app.Open(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("open backends", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	jobs, err := deps.Enqueuer(ctx)
	if err != nil {
		logger.Error("init queue", "error", err)
		os.Exit(1)
	}
	svc, err := deps.Service(jobs)
	if err != nil {
		logger.Error("init service", "error", err)
		os.Exit(1)
	}

	srv := api.New(cfg, svc, api.Checks{Redis: deps.RedisCheck(), DB: deps.DBCheck, Storage: deps.BlobCheck}, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("api stopped", "error", err)
		os.Exit(1)
	}
}
