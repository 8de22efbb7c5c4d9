package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/salescrm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Dispatcher delivers push events to the handlers registered for their name.
// Handlers run synchronously so the caller can derive the acknowledgement
// from the returned error.
type Dispatcher struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher with an empty registry
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Subscribe registers handler for its event names, or the names given
func (d *Dispatcher) Subscribe(handler shared.EventHandler, eventNames ...string) {
	d.registry.Register(handler, eventNames...)
	if len(eventNames) == 0 {
		eventNames = handler.EventTypes()
	}
	d.logger.Debug("handler subscribed", zap.Strings("events", eventNames))
}

// Registry exposes the underlying registry
func (d *Dispatcher) Registry() *HandlerRegistry {
	return d.registry
}

// Dispatch runs every handler registered for event.Name. Every handler runs
// even when an earlier one fails; the failures are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, event *shared.Event) (bool, error) {
	handlers := d.registry.GetHandlers(event.Name)
	if len(handlers) == 0 {
		return false, nil
	}

	var errs []error
	for _, h := range handlers {
		if err := d.dispatchToHandler(ctx, h, event); err != nil {
			errs = append(errs, err)
		}
	}
	return true, errors.Join(errs...)
}

// dispatchToHandler turns a handler panic into an error
func (d *Dispatcher) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event *shared.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				zap.String("event", event.Name),
				zap.String("message_id", event.MessageID),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler for %s panicked: %v", event.Name, r)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventDispatcher = (*Dispatcher)(nil)
