package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	errs "stockalert/internal/errors"
	"stockalert/internal/models"
	"stockalert/internal/provider"
	"stockalert/internal/store"
	"stockalert/pkg/utils"
)

// fakeProvider returns canned rows, or a fixed error, and counts calls.
type fakeProvider struct {
	name       string
	daily      []models.DailyPrice
	intraday   []models.IntradayPrice
	candidates []models.TickerCandidate
	err        error

	dailyCalls    int
	intradayCalls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchDaily(ctx context.Context, symbol string, outputSize int) ([]models.DailyPrice, error) {
	f.dailyCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.daily, nil
}

func (f *fakeProvider) FetchIntraday(ctx context.Context, symbol string) ([]models.IntradayPrice, error) {
	f.intradayCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.intraday, nil
}

func (f *fakeProvider) SearchSymbols(ctx context.Context, query string) ([]models.TickerCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

var _ provider.Provider = (*fakeProvider)(nil)

func newTestStore(t *testing.T) store.DataStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ingest_test.db")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(dbPath)
	})
	return s
}

func fastOptions() Options {
	return Options{
		InterCallDelay: time.Millisecond,
		Retry: utils.RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2.0,
		},
	}
}

func sampleDaily(symbol string) []models.DailyPrice {
	return []models.DailyPrice{
		{Symbol: symbol, Date: "2025-06-10", Open: 100, High: 105, Low: 99, Close: 104, Volume: 1000, Provider: "fake"},
		{Symbol: symbol, Date: "2025-06-11", Open: 104, High: 108, Low: 103, Close: 107, Volume: 1200, Provider: "fake"},
	}
}

func TestRefreshSymbolPersistsRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := &fakeProvider{name: "fake", daily: sampleDaily("AAPL")}

	o := New(s, []provider.Provider{p}, zerolog.Nop(), fastOptions())
	if !o.RefreshSymbol(ctx, "AAPL") {
		t.Fatal("RefreshSymbol returned false with usable rows available")
	}

	latest, err := s.LatestDaily(ctx, "AAPL")
	if err != nil {
		t.Fatalf("LatestDaily: %v", err)
	}
	if latest == nil || latest.Date != "2025-06-11" || latest.Close != 107 {
		t.Errorf("latest daily = %+v, want 2025-06-11 close 107", latest)
	}
}

func TestRefreshSymbolFallsBackToSecondProvider(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	broken := &fakeProvider{name: "broken", err: errs.NewPermanent("broken", "daily", context.DeadlineExceeded)}
	working := &fakeProvider{name: "working", daily: sampleDaily("IBM")}

	o := New(s, []provider.Provider{broken, working}, zerolog.Nop(), fastOptions())
	if !o.RefreshSymbol(ctx, "IBM") {
		t.Fatal("RefreshSymbol should succeed via the fallback provider")
	}

	latest, err := s.LatestDaily(ctx, "IBM")
	if err != nil || latest == nil {
		t.Fatalf("fallback rows not persisted: latest=%v err=%v", latest, err)
	}
	if latest.Provider != "fake" {
		t.Errorf("provider tag = %q, want %q", latest.Provider, "fake")
	}
}

func TestRefreshSymbolRetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &fakeProvider{name: "flaky", err: errs.NewTransient("flaky", "daily", context.DeadlineExceeded)}

	o := New(s, []provider.Provider{p}, zerolog.Nop(), fastOptions())
	if o.RefreshSymbol(ctx, "MSFT") {
		t.Fatal("RefreshSymbol should fail when every attempt errors")
	}
	if p.dailyCalls != 3 {
		t.Errorf("daily fetch attempts = %d, want 3 (transient errors retried)", p.dailyCalls)
	}
}

func TestRefreshSymbolPermanentErrorsSkipRetry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &fakeProvider{name: "rejecting", err: errs.NewPermanent("rejecting", "daily", context.DeadlineExceeded)}

	o := New(s, []provider.Provider{p}, zerolog.Nop(), fastOptions())
	if o.RefreshSymbol(ctx, "MSFT") {
		t.Fatal("RefreshSymbol should fail on a permanent error")
	}
	if p.dailyCalls != 1 {
		t.Errorf("daily fetch attempts = %d, want 1 (permanent errors not retried)", p.dailyCalls)
	}
}

func TestRefreshSymbolNoRowsAnywhere(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty1 := &fakeProvider{name: "a"}
	empty2 := &fakeProvider{name: "b"}

	o := New(s, []provider.Provider{empty1, empty2}, zerolog.Nop(), fastOptions())
	if o.RefreshSymbol(ctx, "GONE") {
		t.Fatal("RefreshSymbol should report failure when no provider yields rows")
	}
}

func TestRefreshSymbolIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := &fakeProvider{name: "fake", daily: sampleDaily("AAPL")}

	o := New(s, []provider.Provider{p}, zerolog.Nop(), fastOptions())
	for i := 0; i < 3; i++ {
		if !o.RefreshSymbol(ctx, "AAPL") {
			t.Fatalf("refresh %d failed", i)
		}
	}

	rows, err := s.GetDailyPrices(ctx, "AAPL", "", "")
	if err != nil {
		t.Fatalf("GetDailyPrices: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("row count after repeated refresh = %d, want 2 (upsert, not append)", len(rows))
	}
}

func TestRefreshAllBoundsTheRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Now()
	tickers := []models.Ticker{
		{Symbol: "AAA", Name: "A Corp", SecurityType: models.SecurityStock, Exchange: "NYSE", UpdatedAt: now},
		{Symbol: "BBB", Name: "B Corp", SecurityType: models.SecurityStock, Exchange: "NYSE", UpdatedAt: now},
		{Symbol: "CCC", Name: "C Corp", SecurityType: models.SecurityStock, Exchange: "NYSE", UpdatedAt: now},
	}
	if err := s.UpsertTickers(ctx, tickers); err != nil {
		t.Fatalf("UpsertTickers: %v", err)
	}

	p := &fakeProvider{name: "fake", daily: sampleDaily("X")}
	o := New(s, []provider.Provider{p}, zerolog.Nop(), fastOptions())

	result, err := o.RefreshAll(ctx, 2, time.Second)
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if result.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", result.Succeeded)
	}
	if result.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", result.Remaining)
	}
}

func TestBulkResultSummary(t *testing.T) {
	r := BulkResult{Succeeded: 5, Failed: 1}
	want := "Loaded recent prices for 5 tickers. Failed: 1."
	if got := r.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	r.Remaining = 3
	if got := r.Summary(); got == want {
		t.Error("Summary() should mention unprocessed tickers when the run was capped")
	}
}

func TestSearchUpsertsCandidates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &fakeProvider{name: "fake", candidates: []models.TickerCandidate{
		{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Exchange: "NYSEArca", Type: "ETF"},
		{Symbol: "SPYG", Name: "SPDR Growth ETF", Exchange: "NYSEArca", Type: "etf"},
	}}
	o := New(s, []provider.Provider{p}, zerolog.Nop(), fastOptions())

	candidates, err := o.Search(ctx, "spdr")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}

	ticker, err := s.GetTicker(ctx, "SPY")
	if err != nil {
		t.Fatalf("GetTicker: %v", err)
	}
	if ticker == nil {
		t.Fatal("search result was not recorded in the ticker universe")
	}
	if ticker.SecurityType != models.SecurityETF {
		t.Errorf("security type = %v, want ETF", ticker.SecurityType)
	}
}
