package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tinylink-io/tinylink/internal/model"
	"github.com/tinylink-io/tinylink/internal/service"
)

// Handler holds HTTP handlers and dependencies.
// It follows the dependency injection pattern, receiving
// interfaces rather than concrete implementations for testability.
type Handler struct {
	urlService service.URLServiceInterface // URL shortening business logic
	db         DBInterface                 // Database connection for health checks
	logger     *slog.Logger                // Structured logger for validation/error logging
	baseURL    string                      // Base URL for composing full short links
}

// DBInterface defines the database operations needed by the handler.
// This interface allows for easy mocking in unit tests without
// requiring a real database connection.
type DBInterface interface {
	Ping(ctx context.Context) error // Check database connectivity
}

// NewHandler creates a new handler instance with the provided dependencies.
func NewHandler(urlService service.URLServiceInterface, db DBInterface, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{
		urlService: urlService,
		db:         db,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// RegisterRoutes registers all route definitions on the given Gin engine.
// The caller is responsible for creating the engine and adding middleware
// before calling this method, so middleware runs in the correct order.
// Routes are organized into:
//   - Liveness/health probes for monitoring
//   - API endpoints for creating links and reading analytics
//   - Public redirect endpoint for short URL resolution
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ping", h.ping)
	r.GET("/health", h.healthCheck)

	api := r.Group("/api")
	{
		api.POST("/url", h.createShortURL)  // Create short link
		api.GET("/stats/:code", h.getStats) // Link + click history
		api.GET("/urls", h.listURLs)        // All links, newest first
	}

	// Redirect route (public) - must be last to avoid conflicts
	r.GET("/:code", h.redirect)
}

// ping handles GET /ping
// Liveness probe; always answers 200 so the keep-alive pinger and
// platform health checks have a cheap target.
func (h *Handler) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// healthCheck handles GET /health
// Returns 200 when the store is reachable, 503 otherwise.
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	c.String(http.StatusOK, "OK")
}

// createShortURL handles POST /api/url
// Creates a new short link from the provided original URL.
// Response codes:
//   - 200 OK: link created, body {shortId, url, shortUrl}
//   - 400 Bad Request: missing or malformed URL
//   - 409 Conflict: could not allocate a unique short code
//   - 503 Service Unavailable: store unreachable
//   - 500 Internal Server Error: unexpected error
func (h *Handler) createShortURL(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.CreateURLRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			slog.String("error", err.Error()),
			slog.String("path", c.Request.URL.Path))
		h.errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	link, err := h.urlService.Shorten(ctx, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			h.errorResponse(c, http.StatusBadRequest, "Invalid URL format")
		case errors.Is(err, service.ErrCodeExhausted):
			h.errorResponse(c, http.StatusConflict, "This short URL already exists")
		case errors.Is(err, service.ErrUnavailable):
			h.errorResponse(c, http.StatusServiceUnavailable, "Database connection error")
		default:
			h.logger.ErrorContext(ctx, "unexpected error creating short URL",
				slog.String("error", err.Error()))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, model.CreateURLResponse{
		ShortID:  link.ShortCode,
		URL:      link.OriginalURL,
		ShortURL: h.baseURL + "/" + link.ShortCode,
	})
}

// getStats handles GET /api/stats/:code
// Returns link metadata plus the click history without recording a click.
// Response codes:
//   - 200 OK: stats retrieved
//   - 404 Not Found: short code does not exist
//   - 503 Service Unavailable: store unreachable
//   - 500 Internal Server Error: unexpected error
func (h *Handler) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	stats, err := h.urlService.GetStats(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrURLNotFound):
			h.errorResponse(c, http.StatusNotFound, "URL not found")
		case errors.Is(err, service.ErrUnavailable):
			h.errorResponse(c, http.StatusServiceUnavailable, "Database connection error")
		default:
			h.logger.ErrorContext(ctx, "unexpected error fetching stats",
				slog.String("error", err.Error()),
				slog.String("code", code))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, stats)
}

// listURLs handles GET /api/urls
// Returns every link, newest first; an empty list is 200 with [].
func (h *Handler) listURLs(c *gin.Context) {
	ctx := c.Request.Context()

	links, err := h.urlService.ListAll(ctx)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnavailable):
			h.errorResponse(c, http.StatusServiceUnavailable, "Database connection error")
		default:
			h.logger.ErrorContext(ctx, "unexpected error listing URLs",
				slog.String("error", err.Error()))
			h.errorResponse(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, links)
}

// redirect handles GET /:code
// Redirects to the original URL with a 302. Click tracking is dispatched
// by the service fire-and-forget and never delays this response.
// Response codes:
//   - 302 Found: Location header set to the original URL
//   - 404 Not Found: plain-text body, short code does not exist
//   - 503 Service Unavailable: store unreachable
//   - 500 Internal Server Error: unexpected error
func (h *Handler) redirect(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	destination, err := h.urlService.Resolve(ctx, code, model.Click{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrURLNotFound):
			c.String(http.StatusNotFound, "URL not found")
		case errors.Is(err, service.ErrUnavailable):
			c.String(http.StatusServiceUnavailable, "Service unavailable")
		default:
			h.logger.ErrorContext(ctx, "unexpected error during redirect",
				slog.String("error", err.Error()),
				slog.String("code", code))
			c.String(http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.Redirect(http.StatusFound, destination)
}

// errorResponse sends the JSON error envelope used by the API endpoints.
func (h *Handler) errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, model.ErrorResponse{Error: message})
}
