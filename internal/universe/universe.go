// Package universe populates the tradable-symbol universe from a bulk
// listing feed.
package universe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "stockalert/internal/errors"
	"stockalert/internal/ingest"
	"stockalert/internal/models"
	"stockalert/internal/store"
	"stockalert/pkg/utils"
)

var symbolShape = regexp.MustCompile(`^[A-Za-z]{1,5}$`)

// Row is one parsed ticker from the bulk listing.
type Row struct {
	Symbol       string
	Name         string
	SecurityType models.SecurityType
}

// ClassifySecurityType maps the listing's ETF flag plus a name-pattern match
// to a security type. Non-ETF rows default to STOCK.
func ClassifySecurityType(etfFlag, name string) models.SecurityType {
	if strings.ToUpper(strings.TrimSpace(etfFlag)) != "Y" {
		return models.SecurityStock
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case containsWord(upper, "ETN") || strings.Contains(upper, "EXCHANGE TRADED NOTE"):
		return models.SecurityETN
	case containsWord(upper, "ETC") || strings.Contains(upper, "EXCHANGE TRADED COMMODITY"):
		return models.SecurityETC
	default:
		return models.SecurityETF
	}
}

// containsWord reports whether word appears in s on word boundaries.
func containsWord(s, word string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(word)
		beforeOK := idx == 0 || !isWordChar(s[idx-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// ParseListing parses a pipe- or comma-delimited bulk listing. The first
// line is a header used to resolve column indices by name. Rows outside the
// exchange allow-set, rows with too few columns, and symbols failing the
// 1-5 letter shape check (footers, multi-class tickers) are dropped. The
// result is de-duplicated by symbol and sorted ascending; a positive limit
// caps how many rows are collected.
func ParseListing(raw string, allowedExchanges []string, limit int) []Row {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil
	}

	delimiter := "|"
	if !strings.Contains(lines[0], "|") {
		delimiter = ","
	}

	header := strings.Split(lines[0], delimiter)
	idxExchange := headerIndex(header, "Exchange")
	idxSymbol := headerIndex(header, "ACT Symbol")
	idxName := headerIndex(header, "Security Name")
	idxEtf := headerIndex(header, "ETF")
	if idxExchange < 0 || idxSymbol < 0 || idxName < 0 || idxEtf < 0 {
		return nil
	}
	minCols := maxIndex(idxExchange, idxSymbol, idxName, idxEtf) + 1

	allowed := make(map[string]bool, len(allowedExchanges))
	for _, e := range allowedExchanges {
		allowed[strings.ToUpper(e)] = true
	}

	var out []Row
	for _, line := range lines[1:] {
		cols := strings.Split(line, delimiter)
		if len(cols) < minCols {
			continue
		}
		if !allowed[strings.ToUpper(strings.TrimSpace(cols[idxExchange]))] {
			continue
		}
		symbol := strings.TrimSpace(cols[idxSymbol])
		if !symbolShape.MatchString(symbol) {
			continue
		}
		name := strings.TrimSpace(cols[idxName])
		out = append(out, Row{
			Symbol:       symbol,
			Name:         name,
			SecurityType: ClassifySecurityType(cols[idxEtf], name),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	seen := make(map[string]bool, len(out))
	deduped := out[:0]
	for _, r := range out {
		if seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		deduped = append(deduped, r)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Symbol < deduped[j].Symbol })
	return deduped
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func maxIndex(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Result aggregates one bootstrap run.
type Result struct {
	Inserted  int
	Hydrated  int
	Remaining int
}

// RetryWanted reports whether the scheduler should re-run the bootstrap.
func (r Result) RetryWanted() bool { return r.Remaining > 0 }

// Bootstrapper loads the ticker universe and hydrates daily history for
// symbols that have none yet.
type Bootstrapper struct {
	store      store.DataStore
	ingestor   *ingest.Orchestrator
	client     *http.Client
	logger     zerolog.Logger
	listingURL string
	exchanges  []string
	maxPerRun  int
}

// NewBootstrapper creates a Bootstrapper.
func NewBootstrapper(dataStore store.DataStore, ingestor *ingest.Orchestrator, logger zerolog.Logger, listingURL string, exchanges []string, maxPerRun int) *Bootstrapper {
	if maxPerRun <= 0 {
		maxPerRun = 25
	}
	return &Bootstrapper{
		store:      dataStore,
		ingestor:   ingestor,
		client:     &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		listingURL: listingURL,
		exchanges:  exchanges,
		maxPerRun:  maxPerRun,
	}
}

// RefreshTickers downloads and parses the listing and upserts the universe.
// It returns the number of rows inserted; a failed download degrades to
// zero rather than an error so a partially-populated universe keeps working.
func (b *Bootstrapper) RefreshTickers(ctx context.Context, limit int) (int, error) {
	cfg := utils.DefaultRetryConfig()
	cfg.ShouldRetry = errs.IsTransient

	raw, err := utils.RetryWithResult(ctx, cfg, func() (string, error) {
		return b.fetchListing(ctx)
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("Listing download failed")
		return 0, nil
	}

	rows := ParseListing(raw, b.exchanges, limit)
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now()
	tickers := make([]models.Ticker, 0, len(rows))
	for _, r := range rows {
		tickers = append(tickers, models.Ticker{
			Symbol:       r.Symbol,
			Name:         r.Name,
			SecurityType: r.SecurityType,
			Exchange:     "NYSE",
			UpdatedAt:    now,
		})
	}
	if err := b.store.UpsertTickers(ctx, tickers); err != nil {
		return 0, errs.Wrap(err, "persisting ticker universe")
	}
	return len(tickers), nil
}

func (b *Bootstrapper) fetchListing(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.listingURL, nil)
	if err != nil {
		return "", errs.NewPermanent("listing", "download", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", errs.NewTransient("listing", "download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.NewTransient("listing", "download", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.NewTransient("listing", "download", err)
	}
	return string(body), nil
}

// Run refreshes the universe and hydrates daily history for up to
// maxPerRun symbols without any. Remaining counts symbols still missing
// history after this pass; the caller maps a non-zero value to a retry
// request toward its scheduler.
func (b *Bootstrapper) Run(ctx context.Context) (Result, error) {
	inserted, err := b.RefreshTickers(ctx, 0)
	if err != nil {
		return Result{}, err
	}

	targets, err := b.store.SymbolsWithoutDaily(ctx, b.maxPerRun)
	if err != nil {
		return Result{}, errs.Wrap(err, "querying symbols without history")
	}

	hydrated := 0
	for _, symbol := range targets {
		if err := ctx.Err(); err != nil {
			return Result{Inserted: inserted, Hydrated: hydrated}, err
		}
		if b.ingestor.RefreshSymbol(ctx, symbol) {
			hydrated++
		}
	}

	remaining, err := b.store.CountSymbolsWithoutDaily(ctx)
	if err != nil {
		return Result{}, errs.Wrap(err, "counting symbols without history")
	}

	result := Result{Inserted: inserted, Hydrated: hydrated, Remaining: remaining}
	b.logger.Info().
		Int("inserted", result.Inserted).
		Int("hydrated", result.Hydrated).
		Int("remaining", result.Remaining).
		Msg("Universe bootstrap pass completed")
	return result, nil
}
