package domain

import "time"

// Mode is the verbosity of a tick stream for an instrument.
type Mode string

const (
	ModeLTP   Mode = "ltp"
	ModeQuote Mode = "quote"
	ModeFull  Mode = "full"
)

// Valid reports whether m is one of the modes the server understands.
func (m Mode) Valid() bool {
	return m == ModeLTP || m == ModeQuote || m == ModeFull
}

// OHLC is the day's open/high/low/close.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// DepthItem is a single resting price level.
type DepthItem struct {
	Quantity uint32  `json:"quantity"`
	Price    float64 `json:"price"`
	Orders   uint16  `json:"orders"`
}

// Depth holds the top five buy and sell levels in wire order.
type Depth struct {
	Buy  [5]DepthItem `json:"buy"`
	Sell [5]DepthItem `json:"sell"`
}

// Tick is one instrument update decoded from a binary frame.
// Mode tags which fields are populated: LTP carries only LastPrice,
// QUOTE adds OHLC/NetChange (and the volume block for tradable segments),
// FULL adds timestamps, open interest and market depth.
type Tick struct {
	Mode            Mode   `json:"mode"`
	InstrumentToken uint32 `json:"instrument_token"`
	ExchangeToken   uint32 `json:"exchange_token"`
	Segment         uint8  `json:"segment"`
	IsTradable      bool   `json:"tradable"`
	IsIndex         bool   `json:"is_index"`

	LastPrice          float64 `json:"last_price"`
	LastTradedQuantity uint32  `json:"last_traded_quantity,omitempty"`
	AverageTradePrice  float64 `json:"average_traded_price,omitempty"`
	VolumeTraded       uint32  `json:"volume_traded,omitempty"`
	TotalBuyQuantity   uint32  `json:"total_buy_quantity,omitempty"`
	TotalSellQuantity  uint32  `json:"total_sell_quantity,omitempty"`
	OHLC               OHLC    `json:"ohlc"`
	NetChange          float64 `json:"change"`

	// Absent when the server sends zero.
	LastTradeTime     *time.Time `json:"last_trade_time,omitempty"`
	ExchangeTimestamp *time.Time `json:"exchange_timestamp,omitempty"`

	OI        uint32 `json:"oi,omitempty"`
	OIDayHigh uint32 `json:"oi_day_high,omitempty"`
	OIDayLow  uint32 `json:"oi_day_low,omitempty"`

	Depth Depth `json:"depth"`
}

// BestBid returns the top buy level, if any quantity rests there.
func (t *Tick) BestBid() (DepthItem, bool) {
	b := t.Depth.Buy[0]
	return b, b.Quantity > 0
}

// BestAsk returns the top sell level, if any quantity rests there.
func (t *Tick) BestAsk() (DepthItem, bool) {
	a := t.Depth.Sell[0]
	return a, a.Quantity > 0
}
