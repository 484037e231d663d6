package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinylink-io/tinylink/internal/api"
	"github.com/tinylink-io/tinylink/internal/config"
	"github.com/tinylink-io/tinylink/internal/middleware"
	"github.com/tinylink-io/tinylink/internal/observability"
	"github.com/tinylink-io/tinylink/internal/repository"
	"github.com/tinylink-io/tinylink/internal/service"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// pgxPinger adapts *pgxpool.Pool to api.DBInterface.
type pgxPinger struct{ pool *pgxpool.Pool }

func (p *pgxPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// NewRouter initializes all dependencies and returns a configured Gin router.
// This is useful for testing where you don't need the full HTTP server.
// publisher may be nil when no broker is configured.
func NewRouter(cfg *config.Config, db *pgxpool.Pool, publisher service.ClickPublisher, obs *observability.Observability) *gin.Engine {
	store := repository.NewURLRepository(db)
	urlService := service.NewURLService(store, publisher, obs.Logger,
		cfg.App.ShortCodeLen, cfg.App.ShortCodeRetries)
	handler := api.NewHandler(urlService, &pgxPinger{pool: db}, obs.Logger, cfg.App.BaseURL)

	r := gin.New()
	r.Use(otelgin.Middleware("tinylink-gateway"))
	r.Use(middleware.Logging(obs.Logger))
	r.Use(middleware.Metrics(obs.MeterProvider.Meter("tinylink-gateway")))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterRoutes(r)

	return r
}

// NewServer initializes all dependencies and returns a configured HTTP server.
// This includes the router plus HTTP server settings (timeouts, address, etc.).
func NewServer(cfg *config.Config, db *pgxpool.Pool, publisher service.ClickPublisher, obs *observability.Observability) *http.Server {
	router := NewRouter(cfg, db, publisher, obs)

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
