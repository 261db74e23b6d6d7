package event

import (
	"time"

	"kite_ticker/internal/domain"
)

// Event is the payload handed to handlers. The concrete type is fixed per Kind.
type Event interface {
	Kind() Kind
}

// ConnectEvent fires once a socket is open.
type ConnectEvent struct {
	ConnID string
}

// TicksEvent carries the ticks decoded from one binary frame.
type TicksEvent struct {
	Ticks []domain.Tick
}

// DisconnectEvent fires after a socket is lost. Err is the close reason, if known.
type DisconnectEvent struct {
	Err error
}

// ErrorEvent carries a transport error.
type ErrorEvent struct {
	Err error
}

// CloseEvent fires when the current socket has closed.
type CloseEvent struct {
	Err error
}

// ReconnectEvent fires right before a retry is scheduled.
type ReconnectEvent struct {
	Attempt int
	Delay   time.Duration
}

// NoReconnectEvent is terminal for automatic reconnection.
type NoReconnectEvent struct {
	Attempts int
	Err      error
}

// MessageEvent carries a raw binary frame.
type MessageEvent struct {
	Data []byte
}

// OrderUpdateEvent carries an order postback.
type OrderUpdateEvent struct {
	Order domain.OrderUpdate
}

func (ConnectEvent) Kind() Kind     { return KindConnect }
func (TicksEvent) Kind() Kind       { return KindTicks }
func (DisconnectEvent) Kind() Kind  { return KindDisconnect }
func (ErrorEvent) Kind() Kind       { return KindError }
func (CloseEvent) Kind() Kind       { return KindClose }
func (ReconnectEvent) Kind() Kind   { return KindReconnect }
func (NoReconnectEvent) Kind() Kind { return KindNoReconnect }
func (MessageEvent) Kind() Kind     { return KindMessage }
func (OrderUpdateEvent) Kind() Kind { return KindOrderUpdate }
