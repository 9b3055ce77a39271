package models

import "time"

// AlertType represents the kind of price condition an alert watches.
type AlertType string

const (
	// AlertRisesAbove fires when the latest price moves above the threshold.
	AlertRisesAbove AlertType = "RISES_ABOVE"
	// AlertDropsBelow fires when the latest price moves below the threshold.
	AlertDropsBelow AlertType = "DROPS_BELOW"
	// AlertPercentChange fires when the latest price deviates from the
	// reference price by at least the stored fraction. Edge-triggered;
	// the hysteresis latch never applies to it.
	AlertPercentChange AlertType = "PERCENT_CHANGE_FROM_REFERENCE"
)

// Alert represents a user-defined price alert.
//
// Value is a price in currency units for RISES_ABOVE and DROPS_BELOW, and a
// fraction (0.20, not 20) for PERCENT_CHANGE_FROM_REFERENCE; callers divide
// percentage input by 100 before storage.
//
// ConditionActive is the hysteresis latch: while true, the threshold
// condition held on the previous evaluation and the alert must not re-fire
// until the price crosses back through the threshold.
type Alert struct {
	ID              string
	Symbol          string
	Type            AlertType
	Value           float64
	DeleteOnTrigger bool
	ConditionActive bool
	Enabled         bool
	CreatedAt       time.Time
}
