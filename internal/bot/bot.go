// Package bot implements the Telegram chat front end. It is a pure
// presentation client: every command goes through the gateway's HTTP API,
// the bot holds no database access of its own.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tinylink-io/tinylink/internal/model"
)

const welcomeText = "Welcome to URL Shortener Bot!\n\n" +
	"Commands:\n" +
	"/shorten <url> - Shorten a URL\n" +
	"/analytics <short_code> - Get analytics for a shortened URL"

// Sender is the outbound side of the chat transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Bot reads commands from Telegram and answers them by calling the
// gateway API.
type Bot struct {
	tg     *TelegramClient
	sender Sender
	apiURL string // gateway base URL
	http   *http.Client
	logger *slog.Logger
}

// New creates a bot for the given token, talking to the gateway at apiURL.
func New(token, apiURL string, logger *slog.Logger) *Bot {
	tg := NewTelegramClient(token)
	return &Bot{
		tg:     tg,
		sender: tg,
		apiURL: strings.TrimRight(apiURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Run long-polls Telegram for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot started", slog.String("api_url", b.apiURL))

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopped")
			return nil
		default:
		}

		updates, err := b.tg.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("failed to fetch updates", slog.String("error", err.Error()))
			time.Sleep(3 * time.Second)
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *Message) {
	command, arg := splitCommand(msg.Text)

	var reply string
	switch command {
	case "/start":
		reply = welcomeText
	case "/shorten":
		reply = b.handleShorten(ctx, arg)
	case "/analytics":
		reply = b.handleAnalytics(ctx, arg)
	default:
		reply = "Sorry, I don't understand that command. Use /start to see available commands."
	}

	if err := b.sender.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		b.logger.Error("failed to send reply",
			slog.Int64("chat_id", msg.Chat.ID),
			slog.String("error", err.Error()))
	}
}

func (b *Bot) handleShorten(ctx context.Context, rawURL string) string {
	if rawURL == "" {
		return "Please provide a URL to shorten.\nExample: /shorten https://example.com"
	}

	body, err := json.Marshal(model.CreateURLRequest{URL: rawURL})
	if err != nil {
		return "Error: could not build the request"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.apiURL+"/api/url", bytes.NewReader(body))
	if err != nil {
		return "Error: could not build the request"
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Error("shorten request failed", slog.String("error", err.Error()))
		return "Error: the shortening service is unreachable"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr model.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "Error: " + apiErr.Error
		}
		return fmt.Sprintf("Error: unexpected response (%s)", resp.Status)
	}

	var created model.CreateURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "Error: could not read the response"
	}
	return "Here's your shortened URL: " + created.ShortURL
}

func (b *Bot) handleAnalytics(ctx context.Context, code string) string {
	if code == "" {
		return "Please provide a short code.\nExample: /analytics abc123"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.apiURL+"/api/stats/"+code, nil)
	if err != nil {
		return "Error: could not build the request"
	}

	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Error("analytics request failed", slog.String("error", err.Error()))
		return "Error: the shortening service is unreachable"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "Sorry, could not find analytics for this URL."
	}

	var stats model.ShortLinkStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return "Error: could not read the response"
	}

	lastAccessed := "Never"
	if stats.LastAccessed != nil {
		lastAccessed = stats.LastAccessed.Format("2006-01-02")
	}
	return fmt.Sprintf("Analytics for %s:\n\nOriginal URL: %s\nTotal Clicks: %d\nCreated: %s\nLast Accessed: %s",
		stats.ShortCode,
		stats.OriginalURL,
		stats.Clicks,
		stats.CreatedAt.Format("2006-01-02"),
		lastAccessed,
	)
}

// splitCommand separates "/shorten https://x" into the command and its
// first argument. Telegram group mentions like "/shorten@MyBot" count as
// the bare command.
func splitCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}
	command := fields[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	return command, arg
}
