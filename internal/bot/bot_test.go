package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylink-io/tinylink/internal/model"
)

func newTestBot(apiURL string) *Bot {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("test-token", apiURL, logger)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		text    string
		command string
		arg     string
	}{
		{"/start", "/start", ""},
		{"/shorten https://example.com", "/shorten", "https://example.com"},
		{"/analytics abc123", "/analytics", "abc123"},
		{"/shorten@TinyLinkBot https://example.com", "/shorten", "https://example.com"},
		{"  /shorten   https://example.com  ", "/shorten", "https://example.com"},
		{"hello there", "hello", "there"},
		{"", "", ""},
	}

	for _, tt := range tests {
		command, arg := splitCommand(tt.text)
		assert.Equal(t, tt.command, command, "input %q", tt.text)
		assert.Equal(t, tt.arg, arg, "input %q", tt.text)
	}
}

func TestBot_HandleShorten(t *testing.T) {
	ctx := context.Background()

	t.Run("replies with the short link on success", func(t *testing.T) {
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/api/url", r.URL.Path)

			var req model.CreateURLRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "https://example.com", req.URL)

			json.NewEncoder(w).Encode(model.CreateURLResponse{
				ShortID:  "abc123_-",
				URL:      req.URL,
				ShortURL: "http://sho.rt/abc123_-",
			})
		}))
		defer gateway.Close()

		b := newTestBot(gateway.URL)
		reply := b.handleShorten(ctx, "https://example.com")
		assert.Equal(t, "Here's your shortened URL: http://sho.rt/abc123_-", reply)
	})

	t.Run("surfaces the API error message", func(t *testing.T) {
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(model.ErrorResponse{Error: "Invalid URL format"})
		}))
		defer gateway.Close()

		b := newTestBot(gateway.URL)
		reply := b.handleShorten(ctx, "not-a-url")
		assert.Equal(t, "Error: Invalid URL format", reply)
	})

	t.Run("asks for a URL when the argument is missing", func(t *testing.T) {
		b := newTestBot("http://unused.example")
		reply := b.handleShorten(ctx, "")
		assert.Contains(t, reply, "Please provide a URL")
	})
}

func TestBot_HandleAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("formats the analytics reply", func(t *testing.T) {
		created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		accessed := time.Date(2026, 3, 20, 18, 30, 0, 0, time.UTC)

		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/stats/abc123_-", r.URL.Path)
			json.NewEncoder(w).Encode(model.ShortLinkStats{
				ShortLink: model.ShortLink{
					ID:           uuid.New(),
					ShortCode:    "abc123_-",
					OriginalURL:  "https://example.com",
					CreatedAt:    created,
					Clicks:       7,
					LastAccessed: &accessed,
				},
			})
		}))
		defer gateway.Close()

		b := newTestBot(gateway.URL)
		reply := b.handleAnalytics(ctx, "abc123_-")
		assert.Contains(t, reply, "Original URL: https://example.com")
		assert.Contains(t, reply, "Total Clicks: 7")
		assert.Contains(t, reply, "Created: 2026-03-14")
		assert.Contains(t, reply, "Last Accessed: 2026-03-20")
	})

	t.Run("never-accessed links say Never", func(t *testing.T) {
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(model.ShortLinkStats{
				ShortLink: model.ShortLink{ShortCode: "abc123_-", OriginalURL: "https://example.com"},
			})
		}))
		defer gateway.Close()

		b := newTestBot(gateway.URL)
		reply := b.handleAnalytics(ctx, "abc123_-")
		assert.Contains(t, reply, "Last Accessed: Never")
	})

	t.Run("unknown codes get a friendly reply", func(t *testing.T) {
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(model.ErrorResponse{Error: "URL not found"})
		}))
		defer gateway.Close()

		b := newTestBot(gateway.URL)
		reply := b.handleAnalytics(ctx, "missing1")
		assert.Equal(t, "Sorry, could not find analytics for this URL.", reply)
	})

	t.Run("asks for a code when the argument is missing", func(t *testing.T) {
		b := newTestBot("http://unused.example")
		reply := b.handleAnalytics(ctx, "")
		assert.Contains(t, reply, "Please provide a short code")
	})
}

// recordingSender captures outbound replies.
type recordingSender struct {
	chatIDs []int64
	texts   []string
}

func (r *recordingSender) SendMessage(_ context.Context, chatID int64, text string) error {
	r.chatIDs = append(r.chatIDs, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func TestBot_HandleMessage(t *testing.T) {
	ctx := context.Background()

	message := func(text string) *Message {
		m := &Message{Text: text}
		m.Chat.ID = 42
		return m
	}

	t.Run("start replies with the command list", func(t *testing.T) {
		b := newTestBot("http://unused.example")
		sender := &recordingSender{}
		b.sender = sender

		b.handleMessage(ctx, message("/start"))

		require.Len(t, sender.texts, 1)
		assert.Equal(t, []int64{42}, sender.chatIDs)
		assert.Contains(t, sender.texts[0], "/shorten <url>")
		assert.Contains(t, sender.texts[0], "/analytics <short_code>")
	})

	t.Run("unknown commands get a fallback reply", func(t *testing.T) {
		b := newTestBot("http://unused.example")
		sender := &recordingSender{}
		b.sender = sender

		b.handleMessage(ctx, message("what is this"))

		require.Len(t, sender.texts, 1)
		assert.Contains(t, sender.texts[0], "don't understand")
	})
}
