package domain

import "github.com/shopspring/decimal"

// AlertDirection is the side from which the price must reach the target.
type AlertDirection string

const (
	AlertUp   AlertDirection = "UP"
	AlertDown AlertDirection = "DOWN"
)

// AlertConfig is a price alert on a single instrument token.
type AlertConfig struct {
	InstrumentToken uint32          `json:"instrument_token"`
	TargetPrice     decimal.Decimal `json:"target"`
	Direction       AlertDirection  `json:"direction"` // empty until the first price is seen
	IsPersistent    bool            `json:"is_persistent"`
	active          bool
}

// NewAlertConfig creates an alert whose direction follows from currentPrice:
// UP when the target is at or above it, DOWN when below.
func NewAlertConfig(token uint32, targetPrice, currentPrice decimal.Decimal, isPersistent bool) *AlertConfig {
	a := NewPendingAlert(token, targetPrice, isPersistent)
	a.arm(currentPrice)
	return a
}

// NewPendingAlert creates an alert whose direction is fixed by the first
// price passed to Observe. Used for alerts loaded from configuration.
func NewPendingAlert(token uint32, targetPrice decimal.Decimal, isPersistent bool) *AlertConfig {
	return &AlertConfig{
		InstrumentToken: token,
		TargetPrice:     targetPrice,
		IsPersistent:    isPersistent,
		active:          true,
	}
}

func (a *AlertConfig) arm(currentPrice decimal.Decimal) {
	a.Direction = AlertUp
	if a.TargetPrice.LessThan(currentPrice) {
		a.Direction = AlertDown
	}
}

// IsActive returns whether the alert is active
func (a *AlertConfig) IsActive() bool {
	return a.active
}

// SetActive sets the alert's active state
func (a *AlertConfig) SetActive(active bool) {
	a.active = active
}

// CheckCondition reports whether currentPrice has reached the target
// from the alert's direction. It does not change alert state.
func (a *AlertConfig) CheckCondition(currentPrice decimal.Decimal) bool {
	if !a.active {
		return false
	}
	switch a.Direction {
	case AlertUp:
		return currentPrice.GreaterThanOrEqual(a.TargetPrice)
	case AlertDown:
		return currentPrice.LessThanOrEqual(a.TargetPrice)
	default:
		return false
	}
}

// Observe feeds a new price. A pending alert is armed and never fires on
// the price that armed it. One-shot alerts deactivate after firing.
func (a *AlertConfig) Observe(price decimal.Decimal) bool {
	if !a.active {
		return false
	}
	if a.Direction == "" {
		a.arm(price)
		return false
	}
	if !a.CheckCondition(price) {
		return false
	}
	if !a.IsPersistent {
		a.active = false
	}
	return true
}
