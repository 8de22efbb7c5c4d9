package shared

import (
	"encoding/json"
	"time"
)

// Event is an integration event received from the push transport.
// Name selects the handler; Payload holds the raw event JSON so each
// handler decodes its own fields.
type Event struct {
	// MessageID is the transport message id, used for deduplication
	MessageID string
	Name      string
	Country   string
	TraceID   string
	// Attempt is the transport delivery attempt, 0 when unknown
	Attempt     int
	PublishedAt time.Time
	Payload     json.RawMessage
}

// EventContext is the routing context embedded in every event as "ctx"
type EventContext struct {
	Country string `json:"country"`
	TraceID string `json:"trace_id"`
}
