// Package models defines the core data types for the stock alert engine.
package models

import "time"

// SecurityType classifies a tradable symbol.
type SecurityType string

const (
	SecurityStock SecurityType = "STOCK"
	SecurityETF   SecurityType = "ETF"
	SecurityETN   SecurityType = "ETN"
	SecurityETC   SecurityType = "ETC"
)

// Ticker represents a tradable symbol and its descriptive metadata.
type Ticker struct {
	Symbol       string
	Name         string
	SecurityType SecurityType
	Exchange     string
	UpdatedAt    time.Time
}

// DailyPrice is one trading day's OHLCV for a symbol. Rows are keyed by
// (symbol, date); re-ingesting the same day replaces the row.
type DailyPrice struct {
	Symbol   string
	Date     string // YYYY-MM-DD, exchange-local trading date
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Provider string
}

// IntradayPrice is one sub-day OHLCV sample, keyed by (symbol, timestamp).
// Rows are retained only for the current trading date.
type IntradayPrice struct {
	Symbol    string
	Timestamp time.Time
	Date      string // trading date the sample belongs to
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// MarketStatus represents the current market session state.
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// TickerCandidate is a symbol-search result from a remote provider, not yet
// persisted as a Ticker.
type TickerCandidate struct {
	Symbol   string
	Name     string
	Exchange string
	Type     string
}
