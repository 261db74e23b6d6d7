package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

const infy = uint32(408065)

func TestNewAlertConfig_Direction(t *testing.T) {
	tests := []struct {
		name    string
		target  int64
		current int64
		want    AlertDirection
	}{
		{"UP when target > current", 1600, 1500, AlertUp},
		{"DOWN when target < current", 1400, 1500, AlertDown},
		{"UP when target = current", 1500, 1500, AlertUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := NewAlertConfig(infy, decimal.NewFromInt(tt.target), decimal.NewFromInt(tt.current), false)
			if alert.Direction != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, alert.Direction)
			}
		})
	}
}

func TestAlertConfig_CheckCondition(t *testing.T) {
	up := NewAlertConfig(infy, decimal.NewFromInt(1600), decimal.NewFromInt(1500), false)
	down := NewAlertConfig(infy, decimal.NewFromInt(1400), decimal.NewFromInt(1500), false)

	t.Run("UP alert triggers at target", func(t *testing.T) {
		if !up.CheckCondition(decimal.NewFromInt(1600)) {
			t.Error("Should trigger at target price")
		}
	})

	t.Run("UP alert does not trigger below target", func(t *testing.T) {
		if up.CheckCondition(decimal.NewFromFloat(1599.95)) {
			t.Error("Should not trigger below target price")
		}
	})

	t.Run("DOWN alert triggers below target", func(t *testing.T) {
		if !down.CheckCondition(decimal.NewFromFloat(1399.5)) {
			t.Error("Should trigger below target price")
		}
	})

	t.Run("Inactive alert does not trigger", func(t *testing.T) {
		a := NewAlertConfig(infy, decimal.NewFromInt(1600), decimal.NewFromInt(1500), false)
		a.SetActive(false)
		if a.CheckCondition(decimal.NewFromInt(1700)) {
			t.Error("Inactive alert should not trigger")
		}
	})
}

func TestAlertConfig_Observe(t *testing.T) {
	t.Run("pending alert arms on first price", func(t *testing.T) {
		a := NewPendingAlert(infy, decimal.NewFromInt(1400), false)
		if a.Observe(decimal.NewFromInt(1500)) {
			t.Fatal("arming price must not fire")
		}
		if a.Direction != AlertDown {
			t.Fatalf("Expected DOWN, got %s", a.Direction)
		}
		if !a.Observe(decimal.NewFromInt(1390)) {
			t.Error("Should fire once price crosses target")
		}
		if a.IsActive() {
			t.Error("One-shot alert should deactivate after firing")
		}
		if a.Observe(decimal.NewFromInt(1300)) {
			t.Error("Deactivated alert fired again")
		}
	})

	t.Run("persistent alert keeps firing", func(t *testing.T) {
		a := NewAlertConfig(infy, decimal.NewFromInt(1600), decimal.NewFromInt(1500), true)
		for i := 0; i < 3; i++ {
			if !a.Observe(decimal.NewFromInt(1650)) {
				t.Fatalf("fire %d missed", i)
			}
		}
	})
}
