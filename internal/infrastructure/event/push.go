package event

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/salescrm/backend/internal/domain/shared"
)

var (
	ErrMalformedEnvelope = errors.New("push: malformed envelope")
	ErrMissingData       = errors.New("push: message has no data")
	ErrInvalidPayload    = errors.New("push: data is not base64 encoded JSON")
	ErrMissingEventName  = errors.New("push: event has no name")
)

// PushEnvelope is the body of a push subscription delivery
type PushEnvelope struct {
	Message         *PushMessage `json:"message"`
	Subscription    string       `json:"subscription"`
	DeliveryAttempt int          `json:"deliveryAttempt"`
}

// PushMessage is the message inside a push envelope
type PushMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId"`
	Attributes  map[string]string `json:"attributes"`
	PublishTime string            `json:"publishTime"`
}

type eventHeader struct {
	Event string               `json:"event"`
	Ctx   *shared.EventContext `json:"ctx"`
}

// DecodePush parses a push delivery body into an Event. The event payload
// stays raw so handlers decode their own fields.
func DecodePush(body []byte) (*shared.Event, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Message == nil {
		return nil, fmt.Errorf("%w: missing message", ErrMalformedEnvelope)
	}
	if env.Message.Data == "" {
		return nil, ErrMissingData
	}

	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		// some publishers emit URL-safe base64
		if raw, err = base64.URLEncoding.DecodeString(env.Message.Data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	var header eventHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if strings.TrimSpace(header.Event) == "" {
		return nil, ErrMissingEventName
	}

	ev := &shared.Event{
		MessageID: env.Message.MessageID,
		Name:      header.Event,
		Attempt:   env.DeliveryAttempt,
		Payload:   json.RawMessage(raw),
	}
	if header.Ctx != nil {
		ev.Country = shared.NormalizeCountry(header.Ctx.Country)
		ev.TraceID = header.Ctx.TraceID
	}
	if t, err := time.Parse(time.RFC3339Nano, env.Message.PublishTime); err == nil {
		ev.PublishedAt = t
	}
	return ev, nil
}

// EncodePush builds a push delivery body for payload published now. Used by
// tests and by tooling that replays events.
func EncodePush(messageID string, payload any, attempt int) ([]byte, error) {
	return EncodePushAt(messageID, payload, attempt, time.Now())
}

// EncodePushAt is EncodePush with an explicit publish time. A zero time
// leaves publishTime out of the message.
func EncodePushAt(messageID string, payload any, attempt int, publishedAt time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg := &PushMessage{
		Data:      base64.StdEncoding.EncodeToString(raw),
		MessageID: messageID,
	}
	if !publishedAt.IsZero() {
		msg.PublishTime = publishedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(PushEnvelope{
		Message:         msg,
		Subscription:    "projects/local/subscriptions/ventas",
		DeliveryAttempt: attempt,
	})
}
