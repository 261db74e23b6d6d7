package kite

import (
	"time"

	"kite_ticker/internal/domain"
	"kite_ticker/internal/event"
)

// On registers h for kind. Unknown kinds are ignored and false is returned.
// Handlers run on the ticker's event loop and must not call Stop.
func (t *Ticker) On(kind event.Kind, h event.Handler) bool {
	return t.dispatcher.On(kind, h)
}

func (t *Ticker) OnConnect(fn func()) {
	t.On(event.KindConnect, func(event.Event) { fn() })
}

func (t *Ticker) OnTicks(fn func(ticks []domain.Tick)) {
	t.On(event.KindTicks, func(ev event.Event) {
		if e, ok := ev.(event.TicksEvent); ok {
			fn(e.Ticks)
		}
	})
}

// OnDisconnect receives the reason the socket was lost, if any.
func (t *Ticker) OnDisconnect(fn func(err error)) {
	t.On(event.KindDisconnect, func(ev event.Event) {
		if e, ok := ev.(event.DisconnectEvent); ok {
			fn(e.Err)
		}
	})
}

func (t *Ticker) OnError(fn func(err error)) {
	t.On(event.KindError, func(ev event.Event) {
		if e, ok := ev.(event.ErrorEvent); ok {
			fn(e.Err)
		}
	})
}

func (t *Ticker) OnClose(fn func(err error)) {
	t.On(event.KindClose, func(ev event.Event) {
		if e, ok := ev.(event.CloseEvent); ok {
			fn(e.Err)
		}
	})
}

func (t *Ticker) OnReconnect(fn func(attempt int, delay time.Duration)) {
	t.On(event.KindReconnect, func(ev event.Event) {
		if e, ok := ev.(event.ReconnectEvent); ok {
			fn(e.Attempt, e.Delay)
		}
	})
}

// OnNoReconnect fires once the retry ceiling is exceeded. No further automatic
// attempts are made until Connect is called again.
func (t *Ticker) OnNoReconnect(fn func(attempts int)) {
	t.On(event.KindNoReconnect, func(ev event.Event) {
		if e, ok := ev.(event.NoReconnectEvent); ok {
			fn(e.Attempts)
		}
	})
}

// OnMessage receives every raw binary frame, heartbeats included.
func (t *Ticker) OnMessage(fn func(data []byte)) {
	t.On(event.KindMessage, func(ev event.Event) {
		if e, ok := ev.(event.MessageEvent); ok {
			fn(e.Data)
		}
	})
}

func (t *Ticker) OnOrderUpdate(fn func(order domain.OrderUpdate)) {
	t.On(event.KindOrderUpdate, func(ev event.Event) {
		if e, ok := ev.(event.OrderUpdateEvent); ok {
			fn(e.Order)
		}
	})
}
