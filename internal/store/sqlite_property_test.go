package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stockalert/internal/models"
)

// Property: For any batch of valid daily rows, upserting and then reading
// them back produces equivalent rows in ascending date order, and applying
// the same batch again does not change the stored row count.
func TestProperty_DailyPriceRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daily_property.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	countGen := gen.IntRange(1, 15)
	priceGen := gen.Float64Range(1.0, 5000.0)
	volumeGen := gen.Int64Range(0, 10_000_000)

	seq := 0

	properties.Property("daily rows survive a round trip and re-upserts are idempotent", prop.ForAll(
		func(count int, basePrice float64, volume int64) bool {
			ctx := context.Background()
			seq++
			symbol := fmt.Sprintf("SYM%d", seq)

			if err := store.UpsertTickers(ctx, []models.Ticker{{
				Symbol: symbol, Name: symbol, SecurityType: models.SecurityStock,
				Exchange: "NYSE", UpdatedAt: time.Now(),
			}}); err != nil {
				t.Logf("UpsertTickers: %v", err)
				return false
			}

			prices := generateDailyRows(symbol, count, basePrice, volume)
			if err := store.UpsertDailyPrices(ctx, prices); err != nil {
				t.Logf("UpsertDailyPrices: %v", err)
				return false
			}

			got, err := store.GetDailyPrices(ctx, symbol, "", "")
			if err != nil {
				t.Logf("GetDailyPrices: %v", err)
				return false
			}
			if len(got) != len(prices) {
				t.Logf("row count %d != %d", len(got), len(prices))
				return false
			}
			for i := range got {
				if !dailyEqual(got[i], prices[i]) {
					t.Logf("row %d: %+v != %+v", i, got[i], prices[i])
					return false
				}
				if i > 0 && got[i-1].Date >= got[i].Date {
					t.Logf("rows not ascending at %d", i)
					return false
				}
			}

			// Idempotence: re-applying the batch must not grow the table
			if err := store.UpsertDailyPrices(ctx, prices); err != nil {
				return false
			}
			again, err := store.GetDailyPrices(ctx, symbol, "", "")
			return err == nil && len(again) == len(prices)
		},
		countGen, priceGen, volumeGen,
	))

	properties.TestingRun(t)
}

// Property: For any alert, inserting and reading it back preserves every
// field, and flipping the latch via SetAlertConditionActive is observable.
func TestProperty_AlertRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "alerts_property.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.UpsertTickers(ctx, []models.Ticker{{
		Symbol: "AAPL", Name: "Apple Inc.", SecurityType: models.SecurityStock,
		Exchange: "NYSE", UpdatedAt: time.Now(),
	}}); err != nil {
		t.Fatalf("UpsertTickers: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	typeGen := gen.OneConstOf(models.AlertRisesAbove, models.AlertDropsBelow, models.AlertPercentChange)
	valueGen := gen.Float64Range(0.01, 10_000.0)

	seq := 0

	properties.Property("alert fields survive a round trip", prop.ForAll(
		func(alertType models.AlertType, value float64, oneShot, active, enabled bool) bool {
			seq++
			a := models.Alert{
				ID:              fmt.Sprintf("alert-%d", seq),
				Symbol:          "AAPL",
				Type:            alertType,
				Value:           value,
				DeleteOnTrigger: oneShot,
				ConditionActive: active,
				Enabled:         enabled,
				CreatedAt:       time.Now().UTC().Truncate(time.Second),
			}
			if err := store.InsertAlert(ctx, &a); err != nil {
				t.Logf("InsertAlert: %v", err)
				return false
			}

			got, err := store.GetAlert(ctx, a.ID)
			if err != nil || got == nil {
				t.Logf("GetAlert: %v %v", got, err)
				return false
			}
			if got.Type != a.Type || got.Value != a.Value ||
				got.DeleteOnTrigger != a.DeleteOnTrigger ||
				got.ConditionActive != a.ConditionActive ||
				got.Enabled != a.Enabled {
				t.Logf("round trip mismatch: %+v != %+v", got, a)
				return false
			}

			if err := store.SetAlertConditionActive(ctx, a.ID, !active); err != nil {
				return false
			}
			got, err = store.GetAlert(ctx, a.ID)
			return err == nil && got != nil && got.ConditionActive == !active
		},
		typeGen, valueGen, gen.Bool(), gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}

// generateDailyRows builds count consecutive rows with valid OHLC ordering.
func generateDailyRows(symbol string, count int, basePrice float64, volume int64) []models.DailyPrice {
	base := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]models.DailyPrice, 0, count)
	for i := 0; i < count; i++ {
		open := basePrice + float64(i)
		close := open * 1.01
		high := close * 1.02
		low := open * 0.98
		rows = append(rows, models.DailyPrice{
			Symbol:   symbol,
			Date:     base.AddDate(0, 0, i).Format("2006-01-02"),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    close,
			Volume:   volume + int64(i),
			Provider: "test",
		})
	}
	return rows
}

func dailyEqual(a, b models.DailyPrice) bool {
	return a.Symbol == b.Symbol && a.Date == b.Date &&
		a.Open == b.Open && a.High == b.High && a.Low == b.Low &&
		a.Close == b.Close && a.Volume == b.Volume && a.Provider == b.Provider
}
