// Package events carries click events from the gateway to the analytics
// worker over RabbitMQ.
package events

import "time"

// DefaultClickQueue is the queue the gateway publishes to and the
// analytics worker consumes from.
const DefaultClickQueue = "url.clicks"

// ClickMessage is the wire format of one click event.
type ClickMessage struct {
	ShortCode  string    `json:"shortCode"`
	OccurredAt time.Time `json:"occurredAt"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
}
