package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentSnapshot is the latest known state of one instrument, built from ticks.
type InstrumentSnapshot struct {
	InstrumentToken uint32          `gorm:"primaryKey;autoIncrement:false" json:"instrument_token"`
	Mode            Mode            `json:"mode"`
	LastPrice       decimal.Decimal `gorm:"type:text" json:"last_price"`
	Close           decimal.Decimal `gorm:"type:text" json:"close"`
	ChangePct       decimal.Decimal `gorm:"type:text" json:"change_pct"`
	Volume          uint32          `json:"volume"`
	BestBid         decimal.Decimal `gorm:"type:text" json:"best_bid"`
	BestAsk         decimal.Decimal `gorm:"type:text" json:"best_ask"`
	OI              uint32          `json:"oi"`
	ExchangeTime    *time.Time      `json:"exchange_time,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Spread returns best ask minus best bid, or nil without two-sided depth.
func (s *InstrumentSnapshot) Spread() *decimal.Decimal {
	if s.BestBid.IsZero() || s.BestAsk.IsZero() {
		return nil
	}
	spread := s.BestAsk.Sub(s.BestBid)
	return &spread
}

// SubscriptionRecord persists a subscribed token and its requested mode.
type SubscriptionRecord struct {
	InstrumentToken uint32    `gorm:"primaryKey;autoIncrement:false" json:"instrument_token"`
	Mode            Mode      `json:"mode"` // empty means server default
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
