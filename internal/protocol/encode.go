package protocol

import (
	"encoding/json"

	"kite_ticker/internal/domain"
)

// Control message actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionMode        = "mode"
)

// controlMessage is the outbound text frame {"a": action, "v": value}.
type controlMessage struct {
	Action string      `json:"a"`
	Value  interface{} `json:"v"`
}

// EncodeSubscribe builds {"a":"subscribe","v":[tokens]}.
func EncodeSubscribe(tokens []uint32) ([]byte, error) {
	return json.Marshal(controlMessage{Action: ActionSubscribe, Value: tokens})
}

// EncodeUnsubscribe builds {"a":"unsubscribe","v":[tokens]}.
func EncodeUnsubscribe(tokens []uint32) ([]byte, error) {
	return json.Marshal(controlMessage{Action: ActionUnsubscribe, Value: tokens})
}

// EncodeMode builds {"a":"mode","v":[mode,[tokens]]}. The mode is passed
// through as given; the server is the authority on valid modes.
func EncodeMode(mode domain.Mode, tokens []uint32) ([]byte, error) {
	return json.Marshal(controlMessage{Action: ActionMode, Value: []interface{}{mode, tokens}})
}

// TextMessage is the envelope of inbound text frames.
type TextMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TypeOrder marks an order postback.
const TypeOrder = "order"

// ParseOrderUpdate decodes a text frame and returns the order payload when
// the frame is an order postback. ok is false for any other or malformed frame.
// A postback whose fields do not fit OrderUpdate is still returned: the typed
// fields hold what decoded and Raw holds the untouched payload.
func ParseOrderUpdate(frame []byte) (domain.OrderUpdate, bool) {
	var msg TextMessage
	if err := json.Unmarshal(frame, &msg); err != nil || msg.Type != TypeOrder {
		return domain.OrderUpdate{}, false
	}

	var order domain.OrderUpdate
	if len(msg.Data) > 0 {
		_ = json.Unmarshal(msg.Data, &order)
	}
	order.Raw = msg.Data
	return order, true
}
