package event

import (
	"sort"
	"sync"

	"github.com/salescrm/backend/internal/domain/shared"
)

// HandlerRegistry maps event names to handlers
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]shared.EventHandler),
	}
}

// Register adds handler for the given event names. Without names the
// handler's own EventTypes are used.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventNames ...string) {
	if len(eventNames) == 0 {
		eventNames = handler.EventTypes()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range eventNames {
		r.handlers[name] = append(r.handlers[name], handler)
	}
}

// Unregister removes handler from every event name
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, handlers := range r.handlers {
		kept := make([]shared.EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		if len(kept) == 0 {
			delete(r.handlers, name)
		} else {
			r.handlers[name] = kept
		}
	}
}

// GetHandlers returns a copy of the handlers registered for name
func (r *HandlerRegistry) GetHandlers(name string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]shared.EventHandler(nil), r.handlers[name]...)
}

// EventNames returns the registered event names, sorted
func (r *HandlerRegistry) EventNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
