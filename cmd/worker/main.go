package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/FileVault/internal/app"
	"github.com/dharsanguruparan/FileVault/internal/config"
	"github.com/dharsanguruparan/FileVault/internal/logging"
	"github.com/dharsanguruparan/FileVault/internal/queue"
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

	if cfg.QueueBackend != config.QueueAsynq {
		logger.Error("worker needs the asynq queue backend; the memory backend runs jobs inside the api", "queue_backend", cfg.QueueBackend)
		os.Exit(1)
	}

	deps, err := app.Open(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("open backends", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Error("parse redis url", "error", err)
		os.Exit(1)
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Workers,
		Queues:      map[string]int{queue.Name: 1},
		Logger:      logging.NewAsynqLogger(logger),
	})
	mux := deps.Processor().Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("worker started", "queue", queue.Name, "concurrency", cfg.Workers)
	if err := server.Run(mux); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
