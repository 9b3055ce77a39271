// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"stockalert/internal/models"
)

// DataStore defines the query/command contract the engine depends on.
// Point lookups return (nil, nil) when no row matches.
type DataStore interface {
	// Tickers
	UpsertTickers(ctx context.Context, tickers []models.Ticker) error
	GetTicker(ctx context.Context, symbol string) (*models.Ticker, error)
	SearchTickers(ctx context.Context, query string, limit int) ([]models.Ticker, error)
	ListSymbols(ctx context.Context) ([]string, error)
	CountTickers(ctx context.Context) (int, error)
	// DeleteTicker cascades to the symbol's price rows and alerts.
	DeleteTicker(ctx context.Context, symbol string) error

	// Daily (historical) prices
	UpsertDailyPrices(ctx context.Context, prices []models.DailyPrice) error
	GetDailyPrices(ctx context.Context, symbol string, from, to string) ([]models.DailyPrice, error)
	LatestDaily(ctx context.Context, symbol string) (*models.DailyPrice, error)
	PreviousDailyBefore(ctx context.Context, symbol, date string) (*models.DailyPrice, error)
	DeleteDailyBefore(ctx context.Context, minDate string) (int64, error)
	SymbolsWithoutDaily(ctx context.Context, limit int) ([]string, error)
	CountSymbolsWithoutDaily(ctx context.Context) (int, error)

	// Intraday prices
	UpsertIntradayPrices(ctx context.Context, prices []models.IntradayPrice) error
	GetIntradayPrices(ctx context.Context, symbol, date string) ([]models.IntradayPrice, error)
	LatestIntraday(ctx context.Context, symbol string) (*models.IntradayPrice, error)
	PreviousIntraday(ctx context.Context, symbol string) (*models.IntradayPrice, error)
	// DeleteIntradayExcept purges intraday rows for every trading date other
	// than the given one.
	DeleteIntradayExcept(ctx context.Context, date string) (int64, error)

	// Alerts
	InsertAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	GetEnabledAlerts(ctx context.Context) ([]models.Alert, error)
	GetAlertsForSymbol(ctx context.Context, symbol string) ([]models.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
	SetAlertConditionActive(ctx context.Context, id string, active bool) error
	SetAlertEnabled(ctx context.Context, id string, enabled bool) error

	// Lifecycle
	Close() error
}
