package event

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Handler receives an event. Type-switch on ev to reach the payload.
type Handler func(ev Event)

// Dispatcher is a multi-listener registry keyed by Kind. Handlers run
// synchronously on the emitting goroutine, in registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	logger   *slog.Logger

	// OnPanic, if set, is called after a handler panic has been recovered.
	OnPanic func(kind Kind, recovered any)
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[Kind][]Handler),
		logger:   logger,
	}
}

// On appends h to the handlers of kind. Unknown kinds and nil handlers are
// ignored; the return value reports whether h was registered.
func (d *Dispatcher) On(kind Kind, h Handler) bool {
	if !kind.Valid() || h == nil {
		return false
	}
	d.mu.Lock()
	d.handlers[kind] = append(d.handlers[kind], h)
	d.mu.Unlock()
	return true
}

// OnName registers by event name, e.g. "order_update".
func (d *Dispatcher) OnName(name string, h Handler) bool {
	kind, ok := ParseKind(name)
	if !ok {
		return false
	}
	return d.On(kind, h)
}

// HandlerCount returns how many handlers are registered for kind.
func (d *Dispatcher) HandlerCount(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind])
}

// Emit calls every handler registered for ev.Kind(). A panicking handler is
// recovered and logged; the rest still run.
func (d *Dispatcher) Emit(ev Event) {
	if ev == nil {
		return
	}
	kind := ev.Kind()

	d.mu.RLock()
	hs := d.handlers[kind]
	d.mu.RUnlock()

	// Handlers registered during dispatch see the next event, not this one.
	for i, h := range hs {
		d.call(kind, i, h, ev)
	}
}

func (d *Dispatcher) call(kind Kind, idx int, h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				slog.String("event", kind.String()),
				slog.Int("handler", idx),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			if d.OnPanic != nil {
				d.OnPanic(kind, r)
			}
		}
	}()
	h(ev)
}
