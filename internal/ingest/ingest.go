// Package ingest implements the per-symbol price ingestion orchestrator.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "stockalert/internal/errors"
	"stockalert/internal/models"
	"stockalert/internal/provider"
	"stockalert/internal/store"
	"stockalert/pkg/utils"
)

// Options tunes the orchestrator.
type Options struct {
	// DailyWindow caps how many recent daily rows are persisted per fetch.
	DailyWindow int
	// InterCallDelay is the pause between symbols in bulk loads.
	InterCallDelay time.Duration
	// Retry overrides the provider-call retry policy. Zero value uses
	// utils.DefaultRetryConfig with transient-only classification.
	Retry utils.RetryConfig
}

// Orchestrator normalizes and writes through remote price data for symbols.
// Providers form an ordered fallback chain: the first one yielding usable
// rows wins, partial results are never merged across providers.
type Orchestrator struct {
	store     store.DataStore
	providers []provider.Provider
	logger    zerolog.Logger
	opts      Options
}

// New creates an Orchestrator over the given provider chain.
func New(dataStore store.DataStore, providers []provider.Provider, logger zerolog.Logger, opts Options) *Orchestrator {
	if opts.DailyWindow <= 0 {
		opts.DailyWindow = 7
	}
	if opts.InterCallDelay <= 0 {
		opts.InterCallDelay = 60 * time.Millisecond
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = utils.DefaultRetryConfig()
	}
	opts.Retry.ShouldRetry = errs.IsTransient

	return &Orchestrator{
		store:     dataStore,
		providers: providers,
		logger:    logger,
		opts:      opts,
	}
}

// fetchDaily walks the provider chain for daily rows. Errors degrade to
// no-data; only a non-empty result stops the chain.
func (o *Orchestrator) fetchDaily(ctx context.Context, symbol string) []models.DailyPrice {
	for _, p := range o.providers {
		start := time.Now()
		rows, err := utils.RetryWithResult(ctx, o.opts.Retry, func() ([]models.DailyPrice, error) {
			return p.FetchDaily(ctx, symbol, o.opts.DailyWindow)
		})
		o.logRefresh(symbol, p.Name(), "daily", len(rows), time.Since(start), err)
		if err == nil && len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// fetchIntraday walks the provider chain for intraday samples.
func (o *Orchestrator) fetchIntraday(ctx context.Context, symbol string) []models.IntradayPrice {
	for _, p := range o.providers {
		start := time.Now()
		rows, err := utils.RetryWithResult(ctx, o.opts.Retry, func() ([]models.IntradayPrice, error) {
			return p.FetchIntraday(ctx, symbol)
		})
		o.logRefresh(symbol, p.Name(), "intraday", len(rows), time.Since(start), err)
		if err == nil && len(rows) > 0 {
			return rows
		}
	}
	return nil
}

func (o *Orchestrator) logRefresh(symbol, providerName, series string, rows int, dur time.Duration, err error) {
	event := o.logger.Debug().
		Str("symbol", symbol).
		Str("provider", providerName).
		Str("series", series).
		Int("rows", rows).
		Dur("duration", dur)
	if err != nil {
		event.Err(err).Msg("Fetch failed")
	} else {
		event.Msg("Fetch completed")
	}
}

// RefreshSymbol fetches, normalizes and persists the daily and intraday
// series for one symbol. It returns false only when zero usable rows were
// obtained from every configured provider, or when the write failed.
func (o *Orchestrator) RefreshSymbol(ctx context.Context, symbol string) bool {
	daily := o.fetchDaily(ctx, symbol)
	intraday := o.fetchIntraday(ctx, symbol)

	if len(daily) == 0 && len(intraday) == 0 {
		return false
	}

	if err := o.store.UpsertDailyPrices(ctx, daily); err != nil {
		o.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to persist daily prices")
		return false
	}
	if err := o.store.UpsertIntradayPrices(ctx, intraday); err != nil {
		o.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to persist intraday prices")
		return false
	}
	return true
}

// BulkResult aggregates a bounded bulk load.
type BulkResult struct {
	Succeeded int
	Failed    int
	Remaining int
}

// Summary renders the result for the administrative entry point.
func (r BulkResult) Summary() string {
	s := fmt.Sprintf("Loaded recent prices for %d tickers. Failed: %d.", r.Succeeded, r.Failed)
	if r.Remaining > 0 {
		s += fmt.Sprintf(" %d tickers remain unprocessed to keep the run bounded.", r.Remaining)
	}
	return s
}

// RefreshAll refreshes up to maxSymbols tickers from the known universe with
// an inter-call delay. A per-symbol timeout aborts only that symbol's fetch
// and counts it as failed.
func (o *Orchestrator) RefreshAll(ctx context.Context, maxSymbols int, perSymbolTimeout time.Duration) (BulkResult, error) {
	symbols, err := o.store.ListSymbols(ctx)
	if err != nil {
		return BulkResult{}, errs.Wrap(err, "listing symbols")
	}
	if len(symbols) == 0 {
		return BulkResult{}, nil
	}

	targets := symbols
	if maxSymbols > 0 && len(targets) > maxSymbols {
		targets = targets[:maxSymbols]
	}

	var result BulkResult
	result.Remaining = len(symbols) - len(targets)

	for i, symbol := range targets {
		if err := ctx.Err(); err != nil {
			result.Remaining += len(targets) - i
			return result, err
		}

		ok := o.refreshWithTimeout(ctx, symbol, perSymbolTimeout)
		if ok {
			result.Succeeded++
		} else {
			result.Failed++
		}

		if i < len(targets)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(o.opts.InterCallDelay):
			}
		}
	}

	return result, nil
}

func (o *Orchestrator) refreshWithTimeout(ctx context.Context, symbol string, timeout time.Duration) bool {
	if timeout <= 0 {
		return o.RefreshSymbol(ctx, symbol)
	}
	symCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.RefreshSymbol(symCtx, symbol)
}

// Search queries the provider chain for ticker candidates and records them
// in the ticker universe so alerts can reference them.
func (o *Orchestrator) Search(ctx context.Context, query string) ([]models.TickerCandidate, error) {
	var lastErr error
	for _, p := range o.providers {
		candidates, err := utils.RetryWithResult(ctx, o.opts.Retry, func() ([]models.TickerCandidate, error) {
			return p.SearchSymbols(ctx, query)
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		now := time.Now()
		tickers := make([]models.Ticker, 0, len(candidates))
		for _, c := range candidates {
			secType := models.SecurityStock
			if strings.EqualFold(c.Type, "ETF") {
				secType = models.SecurityETF
			}
			tickers = append(tickers, models.Ticker{
				Symbol:       c.Symbol,
				Name:         c.Name,
				SecurityType: secType,
				Exchange:     c.Exchange,
				UpdatedAt:    now,
			})
		}
		if err := o.store.UpsertTickers(ctx, tickers); err != nil {
			return nil, errs.Wrap(err, "persisting search results")
		}
		return candidates, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}
