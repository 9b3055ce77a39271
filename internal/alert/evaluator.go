// Package alert implements the price-alert decision logic.
package alert

import (
	"math"

	"stockalert/internal/models"
)

// Outcome is the result of evaluating one alert against fresh prices.
type Outcome struct {
	// Fired reports whether a notification should be emitted.
	Fired bool
	// NextActive is the hysteresis latch to persist for threshold alerts.
	NextActive bool
	// PersistState reports whether NextActive must be written back. It is
	// false for percent-change alerts (edge-triggered, never latched) and
	// for one-shot alerts, which are deleted on fire and need no further
	// state tracking.
	PersistState bool
}

// Evaluate applies the trigger rules for one alert.
//
// latest is the freshly fetched price. prev is the preceding tick's price if
// one exists, prevClose the prior trading day's close; either may be nil.
//
// Threshold alerts latch: once the condition holds, the alert fires only if
// the latch was clear, and re-arms when the price crosses back through the
// threshold. Percent-change alerts compare against prev when available, else
// prevClose, and fire whenever the absolute relative move reaches the stored
// fraction.
func Evaluate(a models.Alert, latest float64, prev, prevClose *float64) Outcome {
	switch a.Type {
	case models.AlertRisesAbove:
		conditionHolds := latest > a.Value
		return Outcome{
			Fired:        conditionHolds && !a.ConditionActive,
			NextActive:   conditionHolds,
			PersistState: !a.DeleteOnTrigger,
		}

	case models.AlertDropsBelow:
		conditionHolds := latest < a.Value
		return Outcome{
			Fired:        conditionHolds && !a.ConditionActive,
			NextActive:   conditionHolds,
			PersistState: !a.DeleteOnTrigger,
		}

	case models.AlertPercentChange:
		reference := prev
		if reference == nil {
			reference = prevClose
		}
		if reference == nil || *reference <= 0 {
			return Outcome{}
		}
		change := math.Abs((latest - *reference) / *reference)
		return Outcome{Fired: change >= a.Value}
	}

	return Outcome{}
}
