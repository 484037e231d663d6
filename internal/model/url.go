package model

import (
	"time"

	"github.com/google/uuid"
)

// ShortLink is the persistent mapping from a short code to its destination.
// Only Clicks and LastAccessed mutate after creation; everything else is
// immutable once the row is inserted.
type ShortLink struct {
	ID           uuid.UUID  `json:"id"`
	ShortCode    string     `json:"shortId"`
	OriginalURL  string     `json:"url"`
	CreatedAt    time.Time  `json:"createdAt"`
	Clicks       int64      `json:"clickCount"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
}

// Click carries the request metadata captured when a short code is resolved.
type Click struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// ClickEvent is one row of the append-only click log for a short link.
type ClickEvent struct {
	ID        uuid.UUID `json:"id"`
	URLID     uuid.UUID `json:"-"`
	ShortCode string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
}

// ShortLinkStats bundles a link with its click history for the stats API.
type ShortLinkStats struct {
	ShortLink
	ClickEvents []ClickEvent `json:"clicks"`
}

// CreateURLRequest is the request body for creating a short link.
type CreateURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// CreateURLResponse is returned when a short link is created.
type CreateURLResponse struct {
	ShortID  string `json:"shortId"`
	URL      string `json:"url"`
	ShortURL string `json:"shortUrl"`
}

// ErrorResponse is the JSON error envelope for API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
