package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	errs "stockalert/internal/errors"
	"stockalert/internal/models"
)

const yahooName = "yahoo"

// YahooProvider fetches price data from the Yahoo Finance chart API.
type YahooProvider struct {
	baseURL string
	client  *http.Client
}

// NewYahooProvider creates a Yahoo Finance provider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		baseURL: "https://query1.finance.yahoo.com",
		client:  newHTTPClient(),
	}
}

// Name returns the provider tag stored on persisted rows.
func (p *YahooProvider) Name() string { return yahooName }

// chartResponse mirrors the subset of the chart payload the engine needs.
// Pointers keep null series entries distinguishable from zeros.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []*int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartRow struct {
	epoch  int64
	open   float64
	high   float64
	low    float64
	close  float64
	volume int64
}

// parseChartRows extracts usable rows from a chart payload, skipping any
// index with a null or NaN field. A structurally empty payload yields an
// empty slice, not an error.
func parseChartRows(raw []byte) ([]chartRow, error) {
	var resp chartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	count := len(result.Timestamp)
	for _, n := range []int{len(quote.Open), len(quote.High), len(quote.Low), len(quote.Close), len(quote.Volume)} {
		if n < count {
			count = n
		}
	}

	var rows []chartRow
	for i := 0; i < count; i++ {
		if result.Timestamp[i] == nil || quote.Open[i] == nil || quote.High[i] == nil ||
			quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		row := chartRow{
			epoch:  *result.Timestamp[i],
			open:   *quote.Open[i],
			high:   *quote.High[i],
			low:    *quote.Low[i],
			close:  *quote.Close[i],
			volume: *quote.Volume[i],
		}
		if math.IsNaN(row.open) || math.IsNaN(row.high) || math.IsNaN(row.low) || math.IsNaN(row.close) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchDaily fetches up to outputSize recent daily OHLCV rows.
func (p *YahooProvider) FetchDaily(ctx context.Context, symbol string, outputSize int) ([]models.DailyPrice, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1mo&interval=1d&events=history&includeAdjustedClose=true",
		p.baseURL, url.PathEscape(symbol))

	body, err := get(ctx, p.client, yahooName, "daily", u)
	if err != nil {
		return nil, err
	}

	rows, err := parseChartRows(body)
	if err != nil {
		return nil, errs.NewPermanent(yahooName, "daily", err)
	}

	// One row per trading date, last write wins on duplicates.
	byDate := make(map[string]models.DailyPrice)
	for _, r := range rows {
		date := time.Unix(r.epoch, 0).UTC().Format("2006-01-02")
		byDate[date] = models.DailyPrice{
			Symbol:   symbol,
			Date:     date,
			Open:     r.open,
			High:     r.high,
			Low:      r.low,
			Close:    r.close,
			Volume:   r.volume,
			Provider: yahooName,
		}
	}

	out := make([]models.DailyPrice, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	if outputSize > 0 && len(out) > outputSize {
		out = out[len(out)-outputSize:]
	}
	return out, nil
}

// FetchIntraday fetches the current day's 15-minute samples.
func (p *YahooProvider) FetchIntraday(ctx context.Context, symbol string) ([]models.IntradayPrice, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=15m", p.baseURL, url.PathEscape(symbol))

	body, err := get(ctx, p.client, yahooName, "intraday", u)
	if err != nil {
		return nil, err
	}

	rows, err := parseChartRows(body)
	if err != nil {
		return nil, errs.NewPermanent(yahooName, "intraday", err)
	}

	out := make([]models.IntradayPrice, 0, len(rows))
	for _, r := range rows {
		ts := time.Unix(r.epoch, 0).UTC()
		out = append(out, models.IntradayPrice{
			Symbol:    symbol,
			Timestamp: ts,
			Date:      ts.Format("2006-01-02"),
			Open:      r.open,
			High:      r.high,
			Low:       r.low,
			Close:     r.close,
			Volume:    r.volume,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// SearchSymbols queries the Yahoo symbol search endpoint.
func (p *YahooProvider) SearchSymbols(ctx context.Context, query string) ([]models.TickerCandidate, error) {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=25&newsCount=0", p.baseURL, url.QueryEscape(query))

	body, err := get(ctx, p.client, yahooName, "search", u)
	if err != nil {
		return nil, err
	}

	var resp yahooSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.NewPermanent(yahooName, "search", err)
	}

	var out []models.TickerCandidate
	for _, q := range resp.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		out = append(out, models.TickerCandidate{
			Symbol:   q.Symbol,
			Name:     name,
			Exchange: q.Exchange,
			Type:     q.QuoteType,
		})
	}
	return out, nil
}
