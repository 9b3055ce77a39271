// Package engine implements the scheduled monitoring cycle that ties
// ingestion, alert evaluation and retention together.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockalert/internal/alert"
	errs "stockalert/internal/errors"
	"stockalert/internal/ingest"
	"stockalert/internal/models"
	"stockalert/internal/notify"
	"stockalert/internal/store"
	"stockalert/pkg/utils"
)

// Options tunes the monitoring cycle.
type Options struct {
	RetentionYears int
	Hours          utils.MarketHours
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Engine runs one monitoring cycle per invocation. The external scheduler
// owns the cadence and must not overlap invocations.
type Engine struct {
	store    store.DataStore
	ingestor *ingest.Orchestrator
	notifier notify.Notifier
	logger   zerolog.Logger
	opts     Options
}

// New creates an Engine.
func New(dataStore store.DataStore, ingestor *ingest.Orchestrator, notifier notify.Notifier, logger zerolog.Logger, opts Options) *Engine {
	if opts.RetentionYears <= 0 {
		opts.RetentionYears = 10
	}
	if opts.Hours.Location == nil {
		opts.Hours = utils.DefaultMarketHours()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:    dataStore,
		ingestor: ingestor,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// CycleResult summarizes one monitoring cycle.
type CycleResult struct {
	TradingDate    string
	MarketClosed   bool
	IntradayPurged int64
	DailyPurged    int64
	Symbols        int
	RefreshFailed  int
	Evaluated      int
	Triggered      int
	Deleted        int
}

// RunCycle executes one monitoring pass: retention, market-hours gating,
// per-symbol refresh and alert evaluation. Failures are isolated per symbol;
// the cycle always runs to completion.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	now := e.opts.Now().In(e.opts.Hours.Location)
	result := CycleResult{TradingDate: e.opts.Hours.TradingDate(now)}

	e.applyRetention(ctx, now, &result)

	if !e.opts.Hours.IsOpen(now) {
		result.MarketClosed = true
		e.logger.Debug().Time("now", now).Msg("Market closed, skipping fetch and evaluation")
		return result, nil
	}

	alerts, err := e.store.GetEnabledAlerts(ctx)
	if err != nil {
		return result, errs.Wrap(err, "loading enabled alerts")
	}
	if len(alerts) == 0 {
		return result, nil
	}

	// Group by symbol; symbols without alerts are never fetched.
	bySymbol := make(map[string][]models.Alert)
	var order []string
	for _, a := range alerts {
		if _, seen := bySymbol[a.Symbol]; !seen {
			order = append(order, a.Symbol)
		}
		bySymbol[a.Symbol] = append(bySymbol[a.Symbol], a)
	}
	result.Symbols = len(order)

	for _, symbol := range order {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.processSymbol(ctx, symbol, bySymbol[symbol], &result)
	}

	e.logger.Info().
		Int("symbols", result.Symbols).
		Int("refresh_failed", result.RefreshFailed).
		Int("evaluated", result.Evaluated).
		Int("triggered", result.Triggered).
		Msg("Monitoring cycle completed")

	return result, nil
}

func (e *Engine) applyRetention(ctx context.Context, now time.Time, result *CycleResult) {
	today := e.opts.Hours.TradingDate(now)
	horizon := now.AddDate(-e.opts.RetentionYears, 0, 0).Format("2006-01-02")

	purged, err := e.store.DeleteIntradayExcept(ctx, today)
	if err != nil {
		e.logger.Error().Err(err).Msg("Intraday retention failed")
	} else {
		result.IntradayPurged = purged
	}

	purged, err = e.store.DeleteDailyBefore(ctx, horizon)
	if err != nil {
		e.logger.Error().Err(err).Msg("Daily retention failed")
	} else {
		result.DailyPurged = purged
	}
}

// processSymbol refreshes one symbol and evaluates its alerts. The refresh
// must complete (success or exhausted retries) before any alert of the
// symbol is evaluated.
func (e *Engine) processSymbol(ctx context.Context, symbol string, alerts []models.Alert, result *CycleResult) {
	if !e.ingestor.RefreshSymbol(ctx, symbol) {
		result.RefreshFailed++
		e.logger.Warn().Str("symbol", symbol).Msg("Symbol refresh yielded no data")
	}

	latest, prev, prevClose, ok := e.loadPrices(ctx, symbol)
	if !ok {
		return
	}

	for i := range alerts {
		a := alerts[i]
		outcome := alert.Evaluate(a, latest, prev, prevClose)
		result.Evaluated++

		if outcome.Fired {
			result.Triggered++
			e.logger.Info().
				Str("alert_id", a.ID).
				Str("symbol", symbol).
				Str("type", string(a.Type)).
				Float64("price", latest).
				Msg("Alert triggered")

			// Best-effort delivery; failure is logged, never retried.
			if err := e.notifier.SendAlert(ctx, &a, latest); err != nil {
				e.logger.Warn().Err(err).Str("alert_id", a.ID).Msg("Notification delivery failed")
			}

			if a.DeleteOnTrigger {
				if err := e.store.DeleteAlert(ctx, a.ID); err != nil {
					e.logger.Error().Err(err).Str("alert_id", a.ID).Msg("Failed to delete one-shot alert")
				} else {
					result.Deleted++
				}
				continue
			}
		}

		if outcome.PersistState {
			if err := e.store.SetAlertConditionActive(ctx, a.ID, outcome.NextActive); err != nil {
				e.logger.Error().Err(err).Str("alert_id", a.ID).Msg("Failed to persist alert state")
			}
		}
	}
}

// loadPrices assembles the evaluator inputs for a symbol: the latest price,
// the preceding tick's price, and the prior trading day's close.
func (e *Engine) loadPrices(ctx context.Context, symbol string) (latest float64, prev, prevClose *float64, ok bool) {
	latestIntraday, err := e.store.LatestIntraday(ctx, symbol)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load latest intraday price")
		return 0, nil, nil, false
	}
	latestDaily, err := e.store.LatestDaily(ctx, symbol)
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load latest daily price")
		return 0, nil, nil, false
	}

	switch {
	case latestIntraday != nil:
		latest = latestIntraday.Close
	case latestDaily != nil:
		latest = latestDaily.Close
	default:
		return 0, nil, nil, false
	}

	if prior, err := e.store.PreviousIntraday(ctx, symbol); err == nil && prior != nil {
		prev = &prior.Close
	}

	if latestDaily != nil {
		if prior, err := e.store.PreviousDailyBefore(ctx, symbol, latestDaily.Date); err == nil && prior != nil {
			prevClose = &prior.Close
		}
	}

	// When no prior tick exists, the prior day's close stands in for it.
	if prev == nil {
		prev = prevClose
	}

	return latest, prev, prevClose, true
}
