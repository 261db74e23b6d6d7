package domain

import (
	"encoding/json"
	"time"
)

// OrderUpdate is the payload of a postback pushed over the ticker socket
// as a text frame of {"type":"order","data":{...}}.
// Unknown fields are kept in Raw.
type OrderUpdate struct {
	OrderID           string          `json:"order_id"`
	ExchangeOrderID   string          `json:"exchange_order_id"`
	PlacedBy          string          `json:"placed_by"`
	Status            string          `json:"status"`
	StatusMessage     string          `json:"status_message"`
	TradingSymbol     string          `json:"tradingsymbol"`
	Exchange          string          `json:"exchange"`
	InstrumentToken   uint32          `json:"instrument_token"`
	TransactionType   string          `json:"transaction_type"`
	OrderType         string          `json:"order_type"`
	Product           string          `json:"product"`
	Variety           string          `json:"variety"`
	Quantity          float64         `json:"quantity"`
	FilledQuantity    float64         `json:"filled_quantity"`
	PendingQuantity   float64         `json:"pending_quantity"`
	CancelledQuantity float64         `json:"cancelled_quantity"`
	Price             float64         `json:"price"`
	TriggerPrice      float64         `json:"trigger_price"`
	AveragePrice      float64         `json:"average_price"`
	OrderTimestamp    KiteTime        `json:"order_timestamp"`
	ExchangeTimestamp KiteTime        `json:"exchange_timestamp"`
	Tag               string          `json:"tag"`
	Raw               json.RawMessage `json:"-"`
}

const (
	OrderStatusOpen      = "OPEN"
	OrderStatusComplete  = "COMPLETE"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRejected  = "REJECTED"
	OrderStatusUpdate    = "UPDATE"
)

// IsOpen checks if the order is still working at the exchange.
func (o *OrderUpdate) IsOpen() bool {
	return o.Status == OrderStatusOpen || o.Status == OrderStatusUpdate
}

// KiteTime parses the "2006-01-02 15:04:05" timestamps used in postbacks.
// Empty, null or unparseable values leave it zero.
type KiteTime struct {
	time.Time
}

const kiteTimeLayout = "2006-01-02 15:04:05"

// UnmarshalJSON implements json.Unmarshaler.
func (t *KiteTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	if parsed, err := time.ParseInLocation(kiteTimeLayout, s, time.Local); err == nil {
		t.Time = parsed
	} else if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed
	}
	return nil
}
