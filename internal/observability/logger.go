package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Production output is JSON at
// info level with source locations for log aggregation; everywhere else
// plain text down to debug, which keeps the keep-alive and click-tracking
// chatter visible while developing.
func NewLogger(environment string) *slog.Logger {
	if environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: true,
		}))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
