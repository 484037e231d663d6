package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinylink-io/tinylink/internal/config"
	"github.com/tinylink-io/tinylink/internal/events"
	"github.com/tinylink-io/tinylink/internal/infra"
	"github.com/tinylink-io/tinylink/internal/keepalive"
	"github.com/tinylink-io/tinylink/internal/observability"
	"github.com/tinylink-io/tinylink/internal/server"
	"github.com/tinylink-io/tinylink/internal/service"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Root context is cancelled on Ctrl+C or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.Setup(ctx, observability.Config{
		ServiceName:  "tinylink-gateway",
		Environment:  cfg.App.Environment,
		OTLPEndpoint: cfg.App.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("Failed to setup observability: %v", err)
	}
	logger := obs.Logger

	// Connect to database
	db, err := infra.NewPostgresPool(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("database connected")

	// The click-event publisher is optional: without a broker the gateway
	// still tracks clicks in the database, it just skips publishing.
	var publisher service.ClickPublisher
	if cfg.Queue.URL != "" {
		conn, err := infra.NewAMQPConnection(cfg.Queue.URL)
		if err != nil {
			logger.Warn("broker unreachable, click events will not be published",
				slog.String("error", err.Error()))
		} else {
			defer conn.Close()
			p, err := events.NewPublisher(conn, cfg.Queue.ClickQueue)
			if err != nil {
				logger.Warn("failed to setup click publisher",
					slog.String("error", err.Error()))
			} else {
				defer p.Close()
				publisher = p
			}
		}
	}

	srv := server.NewServer(cfg, db, publisher, obs)
	pinger := keepalive.New(cfg.App.BaseURL, cfg.App.KeepAliveInterval, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return pinger.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		obs.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
	logger.Info("server exited gracefully")
}
