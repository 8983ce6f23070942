package event

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Handler is a callback subscribed to an event name
type Handler[E any] func(ev E)

// Dispatcher is a dispatch table from event name to handlers. Names without a
// registered handler go to the default handler, if one is set.
//
// Handlers run on the goroutine that emits the event. They must not block
// for long, as that stalls the connection that produced the event.
type Dispatcher[E any] struct {
	handlers *xsync.MapOf[string, []Handler[E]]

	mu       sync.RWMutex
	fallback Handler[E]
}

// NewDispatcher creates an empty dispatch table
func NewDispatcher[E any]() *Dispatcher[E] {
	return &Dispatcher[E]{
		handlers: xsync.NewMapOf[string, []Handler[E]](),
	}
}

// On subscribes h to events with the given name
func (d *Dispatcher[E]) On(name string, h Handler[E]) {
	d.handlers.Compute(name, func(old []Handler[E], _ bool) ([]Handler[E], bool) {
		// copy on write, Emit may be iterating over the old slice
		next := make([]Handler[E], len(old), len(old)+1)
		copy(next, old)
		return append(next, h), false
	})
}

// OnDefault sets the handler for events no handler is registered for
func (d *Dispatcher[E]) OnDefault(h Handler[E]) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fallback = h
}

// Off removes all handlers of one event name
func (d *Dispatcher[E]) Off(name string) {
	d.handlers.Delete(name)
}

// RemoveAll removes every handler including the default handler
func (d *Dispatcher[E]) RemoveAll() {
	d.handlers.Clear()

	d.mu.Lock()
	d.fallback = nil
	d.mu.Unlock()
}

// Has reports whether a handler is registered for the name
func (d *Dispatcher[E]) Has(name string) bool {
	handlers, ok := d.handlers.Load(name)
	return ok && len(handlers) > 0
}

// Emit calls all handlers of name in subscription order, or the default
// handler if there are none. It returns false if the event was not handled.
func (d *Dispatcher[E]) Emit(name string, ev E) bool {
	if handlers, ok := d.handlers.Load(name); ok && len(handlers) > 0 {
		for _, h := range handlers {
			h(ev)
		}
		return true
	}

	d.mu.RLock()
	fallback := d.fallback
	d.mu.RUnlock()

	if fallback == nil {
		return false
	}
	fallback(ev)
	return true
}
