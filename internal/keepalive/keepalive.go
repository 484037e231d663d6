// Package keepalive periodically pings the service's own public URL so
// free-tier hosts do not put the instance to sleep after idling.
package keepalive

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultInterval stays under the 15 minutes of inactivity after which
// typical free-tier hosts suspend the instance.
const DefaultInterval = 14 * time.Minute

// Pinger is the keep-alive self-ping task. It has an explicit lifecycle:
// Run starts with the server and stops when the context is cancelled.
type Pinger struct {
	baseURL  string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// New creates a pinger for the given public base URL.
func New(baseURL string, interval time.Duration, logger *slog.Logger) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pinger{
		baseURL:  baseURL,
		interval: interval,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Run pings BASE_URL/ping every interval until ctx is cancelled.
// Local deployments are skipped; there is nothing to keep awake.
func (p *Pinger) Run(ctx context.Context) error {
	if isLocal(p.baseURL) {
		p.logger.Info("keep-alive disabled for local base URL", slog.String("base_url", p.baseURL))
		return nil
	}

	p.logger.Info("keep-alive started",
		slog.String("base_url", p.baseURL),
		slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("keep-alive stopped")
			return nil
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/ping", nil)
	if err != nil {
		p.logger.Error("keep-alive request build failed", slog.String("error", err.Error()))
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("keep-alive ping failed", slog.String("error", err.Error()))
		return
	}
	resp.Body.Close()

	p.logger.Debug("keep-alive ping sent", slog.Int("status", resp.StatusCode))
}

func isLocal(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1" || host == ""
}
