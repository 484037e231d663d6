package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/tinylink-io/tinylink/internal/bot"
	"github.com/tinylink-io/tinylink/internal/config"
	"github.com/tinylink-io/tinylink/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Bot.Token == "" {
		log.Fatal("BOT_TOKEN is required for the chat bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(cfg.App.Environment)

	b := bot.New(cfg.Bot.Token, cfg.Bot.APIURL, logger)
	if err := b.Run(ctx); err != nil {
		log.Fatalf("Bot exited with error: %v", err)
	}
	logger.Info("bot exited gracefully")
}
