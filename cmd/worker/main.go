package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/tinylink-io/tinylink/internal/config"
	"github.com/tinylink-io/tinylink/internal/infra"
	"github.com/tinylink-io/tinylink/internal/observability"
	"github.com/tinylink-io/tinylink/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Queue.URL == "" {
		log.Fatal("AMQP_URL is required for the analytics worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(cfg.App.Environment)

	db, err := infra.NewPostgresPool(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	conn, err := infra.NewAMQPConnection(cfg.Queue.URL)
	if err != nil {
		log.Fatalf("Failed to connect to broker: %v", err)
	}
	defer conn.Close()

	aggregator := worker.New(db, conn, cfg.Queue.ClickQueue, logger)
	if err := aggregator.Run(ctx); err != nil {
		log.Fatalf("Worker exited with error: %v", err)
	}
	logger.Info("worker exited gracefully")
}
