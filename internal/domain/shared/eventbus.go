package shared

import "context"

// EventHandler handles integration events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event *Event) error
	// EventTypes returns the event names this handler is interested in
	EventTypes() []string
}

// EventDispatcher routes an event to the handlers registered for its name.
// handled is false when no handler is registered.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event *Event) (handled bool, err error)
}
