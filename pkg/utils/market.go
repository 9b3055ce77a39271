package utils

import (
	"time"

	"stockalert/internal/models"
)

// NewYorkLocation is the timezone for the NYSE session.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to fixed EST; DST handling degrades but gating still works
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// MarketHours describes a fixed local-time trading session.
type MarketHours struct {
	Location    *time.Location
	OpenMinute  int // minutes past local midnight
	CloseMinute int
}

// DefaultMarketHours returns the NYSE regular session: Mon-Fri 09:30-16:00.
func DefaultMarketHours() MarketHours {
	return MarketHours{
		Location:    NewYorkLocation,
		OpenMinute:  9*60 + 30,
		CloseMinute: 16 * 60,
	}
}

// Status returns the market status at the given instant.
func (h MarketHours) Status(now time.Time) models.MarketStatus {
	local := now.In(h.Location)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	minutes := local.Hour()*60 + local.Minute()
	if minutes >= h.OpenMinute && minutes < h.CloseMinute {
		return models.MarketOpen
	}
	return models.MarketClosed
}

// IsOpen reports whether the market is open at the given instant.
func (h MarketHours) IsOpen(now time.Time) bool {
	return h.Status(now) == models.MarketOpen
}

// TradingDate returns the exchange-local trading date (YYYY-MM-DD) for the
// given instant.
func (h MarketHours) TradingDate(now time.Time) string {
	return now.In(h.Location).Format("2006-01-02")
}

// NextOpen returns the next session open after the given instant.
func (h MarketHours) NextOpen(now time.Time) time.Time {
	local := now.In(h.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), h.OpenMinute/60, h.OpenMinute%60, 0, 0, h.Location)
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
