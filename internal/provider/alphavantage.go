package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	errs "stockalert/internal/errors"
	"stockalert/internal/models"
)

const alphaVantageName = "alphavantage"

// AlphaVantageProvider fetches price data from the Alpha Vantage query API.
// Responses are semi-structured string maps ("1. open", "5. volume"), so
// every field goes through defensive per-row parsing.
type AlphaVantageProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAlphaVantageProvider creates an Alpha Vantage provider.
func NewAlphaVantageProvider(baseURL, apiKey string) *AlphaVantageProvider {
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &AlphaVantageProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(),
	}
}

// Name returns the provider tag stored on persisted rows.
func (p *AlphaVantageProvider) Name() string { return alphaVantageName }

func (p *AlphaVantageProvider) query(ctx context.Context, operation string, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("apikey", p.apiKey)
	u := fmt.Sprintf("%s/query?%s", p.baseURL, params.Encode())

	body, err := get(ctx, p.client, alphaVantageName, operation, u)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errs.NewPermanent(alphaVantageName, operation, err)
	}

	// Throttling arrives as a 200 with a "Note" or "Information" field.
	for _, key := range []string{"Note", "Information"} {
		if raw, ok := envelope[key]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return nil, errs.NewTransient(alphaVantageName, operation, fmt.Errorf("%s: %w", msg, errs.ErrRateLimited))
		}
	}
	if raw, ok := envelope["Error Message"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return nil, errs.NewPermanent(alphaVantageName, operation, fmt.Errorf("api error: %s", msg))
	}

	return envelope, nil
}

// seriesField pulls a numeric field out of a string-keyed OHLCV entry.
func seriesField(entry map[string]string, key string) (float64, bool) {
	raw, ok := entry[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseSeries converts a key-value time series into OHLCV tuples keyed by
// the series timestamp string. Rows with missing or unparseable numeric
// fields are dropped; well-formed rows in the same response are kept.
func parseSeries(raw json.RawMessage) map[string]ohlcv {
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil
	}

	out := make(map[string]ohlcv, len(series))
	for ts, entry := range series {
		open, ok1 := seriesField(entry, "1. open")
		high, ok2 := seriesField(entry, "2. high")
		low, ok3 := seriesField(entry, "3. low")
		closep, ok4 := seriesField(entry, "4. close")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		volume := int64(0)
		if v, ok := seriesField(entry, "5. volume"); ok {
			volume = int64(v)
		}
		out[ts] = ohlcv{open: open, high: high, low: low, close: closep, volume: volume}
	}
	return out
}

type ohlcv struct {
	open, high, low, close float64
	volume                 int64
}

// FetchDaily fetches recent daily OHLCV rows.
func (p *AlphaVantageProvider) FetchDaily(ctx context.Context, symbol string, outputSize int) ([]models.DailyPrice, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	envelope, err := p.query(ctx, "daily", params)
	if err != nil {
		return nil, err
	}

	raw, ok := envelope["Time Series (Daily)"]
	if !ok {
		return nil, nil
	}

	var out []models.DailyPrice
	for date, row := range parseSeries(raw) {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		out = append(out, models.DailyPrice{
			Symbol:   symbol,
			Date:     date,
			Open:     row.open,
			High:     row.high,
			Low:      row.low,
			Close:    row.close,
			Volume:   row.volume,
			Provider: alphaVantageName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	if outputSize > 0 && len(out) > outputSize {
		out = out[len(out)-outputSize:]
	}
	return out, nil
}

// FetchIntraday fetches the latest 15-minute samples.
func (p *AlphaVantageProvider) FetchIntraday(ctx context.Context, symbol string) ([]models.IntradayPrice, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_INTRADAY")
	params.Set("symbol", symbol)
	params.Set("interval", "15min")
	params.Set("outputsize", "compact")

	envelope, err := p.query(ctx, "intraday", params)
	if err != nil {
		return nil, err
	}

	raw, ok := envelope["Time Series (15min)"]
	if !ok {
		return nil, nil
	}

	var out []models.IntradayPrice
	for ts, row := range parseSeries(raw) {
		parsed, err := time.Parse("2006-01-02 15:04:05", ts)
		if err != nil {
			continue
		}
		out = append(out, models.IntradayPrice{
			Symbol:    symbol,
			Timestamp: parsed,
			Date:      parsed.Format("2006-01-02"),
			Open:      row.open,
			High:      row.high,
			Low:       row.low,
			Close:     row.close,
			Volume:    row.volume,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// SearchSymbols queries the SYMBOL_SEARCH endpoint.
func (p *AlphaVantageProvider) SearchSymbols(ctx context.Context, query string) ([]models.TickerCandidate, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", query)

	envelope, err := p.query(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	raw, ok := envelope["bestMatches"]
	if !ok {
		return nil, nil
	}

	var matches []map[string]string
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, errs.NewPermanent(alphaVantageName, "search", err)
	}

	var out []models.TickerCandidate
	for _, m := range matches {
		symbol := m["1. symbol"]
		if symbol == "" {
			continue
		}
		out = append(out, models.TickerCandidate{
			Symbol:   symbol,
			Name:     m["2. name"],
			Exchange: m["4. region"],
			Type:     m["3. type"],
		})
	}
	return out, nil
}
