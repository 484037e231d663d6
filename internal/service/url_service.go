package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tinylink-io/tinylink/internal/events"
	"github.com/tinylink-io/tinylink/internal/model"
	"github.com/tinylink-io/tinylink/internal/repository"
)

var (
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrURLNotFound   = errors.New("URL not found")
	ErrCodeExhausted = errors.New("could not allocate a unique short code")
	ErrUnavailable   = errors.New("storage unavailable")
)

// trackClickTimeout bounds the fire-and-forget click-tracking write so a
// stuck database cannot pile up goroutines behind redirects.
const trackClickTimeout = 5 * time.Second

// URLStore is the persistence contract the service depends on.
// *repository.URLRepository is the production implementation.
type URLStore interface {
	Insert(ctx context.Context, link *model.ShortLink) error
	FindByCode(ctx context.Context, code string) (*model.ShortLink, error)
	ListAll(ctx context.Context) ([]model.ShortLink, error)
	TrackClick(ctx context.Context, code string, event model.ClickEvent) error
	ListClicks(ctx context.Context, code string) ([]model.ClickEvent, error)
}

// ClickPublisher forwards click events to the analytics pipeline.
// It is best-effort: publish failures never affect a redirect.
type ClickPublisher interface {
	Publish(ctx context.Context, msg events.ClickMessage) error
}

// URLService handles business logic for short link operations
type URLService struct {
	store     URLStore
	generator *ShortCodeGenerator
	publisher ClickPublisher // nil when no broker is configured
	logger    *slog.Logger
	retries   int
}

// URLServiceInterface defines the contract for URL shortening operations
type URLServiceInterface interface {
	Shorten(ctx context.Context, rawURL string) (*model.ShortLink, error)
	Resolve(ctx context.Context, code string, click model.Click) (string, error)
	GetStats(ctx context.Context, code string) (*model.ShortLinkStats, error)
	ListAll(ctx context.Context) ([]model.ShortLink, error)
}

// NewURLService creates a new URL service. publisher may be nil, in which
// case click events are recorded in the database only.
func NewURLService(store URLStore, publisher ClickPublisher, logger *slog.Logger, codeLen, retries int) *URLService {
	if retries <= 0 {
		retries = 3
	}
	return &URLService{
		store:     store,
		generator: NewShortCodeGenerator(codeLen),
		publisher: publisher,
		logger:    logger,
		retries:   retries,
	}
}

// Shorten validates the raw URL, generates a short code and persists the
// mapping. On a short-code collision it retries with a fresh code up to a
// bounded number of attempts before giving up with ErrCodeExhausted.
// Validation happens before any store access.
func (s *URLService) Shorten(ctx context.Context, rawURL string) (*model.ShortLink, error) {
	if !isAbsoluteURL(rawURL) {
		return nil, ErrInvalidURL
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, err
		}

		link := &model.ShortLink{
			ID:          uuid.New(),
			ShortCode:   code,
			OriginalURL: rawURL,
		}
		err = s.store.Insert(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, repository.ErrCodeConflict) {
			s.logger.WarnContext(ctx, "short code collision, retrying",
				slog.String("code", code),
				slog.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, repository.ErrUnavailable) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return nil, ErrCodeExhausted
}

// Resolve maps a short code to its destination URL. On success the click is
// tracked fire-and-forget: the write runs in its own goroutine and its
// outcome never blocks or fails the redirect that triggered it.
func (s *URLService) Resolve(ctx context.Context, code string, click model.Click) (string, error) {
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return "", s.mapStoreError(err)
	}

	s.trackClick(ctx, link, click)

	return link.OriginalURL, nil
}

// GetStats returns a link together with its click history.
func (s *URLService) GetStats(ctx context.Context, code string) (*model.ShortLinkStats, error) {
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	clicks, err := s.store.ListClicks(ctx, code)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return &model.ShortLinkStats{ShortLink: *link, ClickEvents: clicks}, nil
}

// ListAll returns every short link, newest first. No links is an empty
// slice, not an error.
func (s *URLService) ListAll(ctx context.Context) ([]model.ShortLink, error) {
	links, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return links, nil
}

// trackClick dispatches the click-tracking side effect without awaiting it.
// Failures are logged and swallowed; the caller already has its answer.
func (s *URLService) trackClick(ctx context.Context, link *model.ShortLink, click model.Click) {
	event := model.ClickEvent{
		ID:        uuid.New(),
		URLID:     link.ID,
		ShortCode: link.ShortCode,
		CreatedAt: time.Now().UTC(),
		IPAddress: click.IPAddress,
		UserAgent: click.UserAgent,
		Referer:   click.Referer,
	}

	// Detach from the request so finishing the redirect does not
	// cancel the write mid-flight.
	ctx = context.WithoutCancel(ctx)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, trackClickTimeout)
		defer cancel()

		if err := s.store.TrackClick(ctx, event.ShortCode, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to track click",
				slog.String("code", event.ShortCode),
				slog.String("error", err.Error()))
		}

		if s.publisher == nil {
			return
		}
		msg := events.ClickMessage{
			ShortCode:  event.ShortCode,
			OccurredAt: event.CreatedAt,
			IPAddress:  event.IPAddress,
			UserAgent:  event.UserAgent,
			Referer:    event.Referer,
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "failed to publish click event",
				slog.String("code", event.ShortCode),
				slog.String("error", err.Error()))
		}
	}()
}

// mapStoreError lifts repository errors into the service's taxonomy.
func (s *URLService) mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrURLNotFound
	case errors.Is(err, repository.ErrUnavailable):
		return ErrUnavailable
	default:
		return err
	}
}

// isAbsoluteURL reports whether raw parses as a well-formed absolute URL
// with a scheme and a host.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// Ensure URLService implements URLServiceInterface at compile time
var _ URLServiceInterface = (*URLService)(nil)
