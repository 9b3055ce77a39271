package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stockalert/internal/ingest"
	"stockalert/internal/models"
	"stockalert/internal/notify"
	"stockalert/internal/provider"
	"stockalert/internal/store"
	"stockalert/pkg/utils"
)

// openWednesday is a Wednesday at 12:00 New York time, inside the session.
var openWednesday = time.Date(2025, time.June, 11, 12, 0, 0, 0, utils.NewYorkLocation)

// closedSaturday is a Saturday at 12:00 New York time.
var closedSaturday = time.Date(2025, time.June, 14, 12, 0, 0, 0, utils.NewYorkLocation)

type fakeProvider struct {
	daily      []models.DailyPrice
	intraday   []models.IntradayPrice
	dailyCalls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(ctx context.Context, symbol string, outputSize int) ([]models.DailyPrice, error) {
	f.dailyCalls++
	return f.daily, nil
}

func (f *fakeProvider) FetchIntraday(ctx context.Context, symbol string) ([]models.IntradayPrice, error) {
	return f.intraday, nil
}

func (f *fakeProvider) SearchSymbols(ctx context.Context, query string) ([]models.TickerCandidate, error) {
	return nil, nil
}

// recordingNotifier captures alert deliveries.
type recordingNotifier struct {
	sent []string
}

func (r *recordingNotifier) Send(ctx context.Context, n notify.Notification) error { return nil }

func (r *recordingNotifier) SendAlert(ctx context.Context, a *models.Alert, latestPrice float64) error {
	r.sent = append(r.sent, a.ID)
	return nil
}

type fixture struct {
	store    store.DataStore
	provider *fakeProvider
	notifier *recordingNotifier
	engine   *Engine
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cycle_test.db")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	p := &fakeProvider{}
	ingestor := ingest.New(s, []provider.Provider{p}, zerolog.Nop(), ingest.Options{
		InterCallDelay: time.Millisecond,
		Retry: utils.RetryConfig{
			MaxAttempts:   1,
			InitialDelay:  time.Millisecond,
			MaxDelay:      time.Millisecond,
			BackoffFactor: 1.0,
		},
	})

	n := &recordingNotifier{}
	eng := New(s, ingestor, n, zerolog.Nop(), Options{
		RetentionYears: 10,
		Hours:          utils.DefaultMarketHours(),
		Now:            func() time.Time { return now },
	})

	return &fixture{store: s, provider: p, notifier: n, engine: eng}
}

func (f *fixture) addTicker(t *testing.T, symbol string) {
	t.Helper()
	err := f.store.UpsertTickers(context.Background(), []models.Ticker{
		{Symbol: symbol, Name: symbol + " Corp", SecurityType: models.SecurityStock, Exchange: "NYSE", UpdatedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("UpsertTickers: %v", err)
	}
}

func (f *fixture) addAlert(t *testing.T, a models.Alert) models.Alert {
	t.Helper()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Enabled = true
	a.CreatedAt = time.Now()
	if err := f.store.InsertAlert(context.Background(), &a); err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}
	return a
}

func TestRunCycleMarketClosed(t *testing.T) {
	f := newFixture(t, closedSaturday)
	f.addTicker(t, "AAPL")
	f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertRisesAbove, Value: 100})
	f.provider.daily = []models.DailyPrice{
		{Symbol: "AAPL", Date: "2025-06-13", Open: 100, High: 110, Low: 99, Close: 109, Volume: 1000, Provider: "fake"},
	}

	result, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !result.MarketClosed {
		t.Error("Saturday cycle should report the market closed")
	}
	if f.provider.dailyCalls != 0 {
		t.Errorf("provider was called %d times on a closed market, want 0", f.provider.dailyCalls)
	}
	if result.Evaluated != 0 || result.Triggered != 0 {
		t.Errorf("closed-market cycle evaluated alerts: %+v", result)
	}
}

func TestRunCycleRetentionRunsWhenClosed(t *testing.T) {
	f := newFixture(t, closedSaturday)
	f.addTicker(t, "AAPL")

	ctx := context.Background()
	stale := []models.IntradayPrice{
		{Symbol: "AAPL", Timestamp: closedSaturday.Add(-48 * time.Hour), Date: "2025-06-12", Open: 100, High: 101, Low: 99, Close: 100, Volume: 10},
	}
	if err := f.store.UpsertIntradayPrices(ctx, stale); err != nil {
		t.Fatalf("UpsertIntradayPrices: %v", err)
	}
	old := []models.DailyPrice{
		{Symbol: "AAPL", Date: "2001-01-02", Open: 10, High: 11, Low: 9, Close: 10, Volume: 10, Provider: "fake"},
	}
	if err := f.store.UpsertDailyPrices(ctx, old); err != nil {
		t.Fatalf("UpsertDailyPrices: %v", err)
	}

	result, err := f.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.IntradayPurged != 1 {
		t.Errorf("IntradayPurged = %d, want 1 (rows from other dates dropped)", result.IntradayPurged)
	}
	if result.DailyPurged != 1 {
		t.Errorf("DailyPurged = %d, want 1 (rows past the retention horizon dropped)", result.DailyPurged)
	}
}

func TestRunCycleTriggersAndPersistsLatch(t *testing.T) {
	f := newFixture(t, openWednesday)
	f.addTicker(t, "AAPL")
	a := f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertRisesAbove, Value: 100})

	f.provider.daily = []models.DailyPrice{
		{Symbol: "AAPL", Date: "2025-06-10", Open: 95, High: 99, Low: 94, Close: 98, Volume: 1000, Provider: "fake"},
		{Symbol: "AAPL", Date: "2025-06-11", Open: 98, High: 106, Low: 97, Close: 105, Volume: 1000, Provider: "fake"},
	}

	ctx := context.Background()
	result, err := f.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Triggered != 1 {
		t.Fatalf("Triggered = %d, want 1", result.Triggered)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != a.ID {
		t.Errorf("notifications = %v, want [%s]", f.notifier.sent, a.ID)
	}

	stored, err := f.store.GetAlert(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if stored == nil {
		t.Fatal("persistent alert was removed after firing")
	}
	if !stored.ConditionActive {
		t.Error("latch not persisted after firing")
	}

	// Second cycle with the condition still holding must stay quiet.
	result, err = f.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second RunCycle: %v", err)
	}
	if result.Triggered != 0 {
		t.Errorf("second cycle Triggered = %d, want 0 (latched)", result.Triggered)
	}
}

func TestRunCycleLatchReleasesOnCrossBack(t *testing.T) {
	f := newFixture(t, openWednesday)
	f.addTicker(t, "AAPL")
	a := f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertRisesAbove, Value: 100, ConditionActive: true})

	// Price now below the threshold: no fire, and the latch must clear.
	f.provider.daily = []models.DailyPrice{
		{Symbol: "AAPL", Date: "2025-06-11", Open: 98, High: 99, Low: 95, Close: 96, Volume: 1000, Provider: "fake"},
	}

	ctx := context.Background()
	result, err := f.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Triggered != 0 {
		t.Errorf("Triggered = %d, want 0", result.Triggered)
	}

	stored, err := f.store.GetAlert(ctx, a.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetAlert: %v %v", stored, err)
	}
	if stored.ConditionActive {
		t.Error("latch should clear when the price crosses back below the threshold")
	}
}

func TestRunCycleDeletesOneShotAlert(t *testing.T) {
	f := newFixture(t, openWednesday)
	f.addTicker(t, "AAPL")
	a := f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertRisesAbove, Value: 100, DeleteOnTrigger: true})

	f.provider.daily = []models.DailyPrice{
		{Symbol: "AAPL", Date: "2025-06-11", Open: 98, High: 106, Low: 97, Close: 105, Volume: 1000, Provider: "fake"},
	}

	ctx := context.Background()
	result, err := f.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Triggered != 1 || result.Deleted != 1 {
		t.Fatalf("result = %+v, want one triggered and one deleted", result)
	}

	stored, err := f.store.GetAlert(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAlert: %v", err)
	}
	if stored != nil {
		t.Error("one-shot alert should be deleted after firing")
	}
}

func TestRunCycleSkipsSymbolsWithoutAlerts(t *testing.T) {
	f := newFixture(t, openWednesday)
	f.addTicker(t, "AAPL")
	f.addTicker(t, "IBM")
	f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertRisesAbove, Value: 100})

	f.provider.daily = []models.DailyPrice{
		{Symbol: "AAPL", Date: "2025-06-11", Open: 98, High: 99, Low: 95, Close: 96, Volume: 1000, Provider: "fake"},
	}

	result, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Symbols != 1 {
		t.Errorf("Symbols = %d, want 1 (only symbols with alerts are fetched)", result.Symbols)
	}
}

func TestRunCycleSurvivesRefreshFailure(t *testing.T) {
	f := newFixture(t, openWednesday)
	f.addTicker(t, "AAPL")
	f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertRisesAbove, Value: 100})

	// Provider yields nothing and no prices are stored: refresh fails and
	// there is nothing to evaluate, but the cycle itself must not error.
	result, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.RefreshFailed != 1 {
		t.Errorf("RefreshFailed = %d, want 1", result.RefreshFailed)
	}
	if result.Evaluated != 0 {
		t.Errorf("Evaluated = %d, want 0 with no stored prices", result.Evaluated)
	}
}

func TestRunCyclePercentChangeAgainstPriorClose(t *testing.T) {
	f := newFixture(t, openWednesday)
	f.addTicker(t, "AAPL")
	// Stored as a fraction: 0.10 means a 10% move.
	f.addAlert(t, models.Alert{Symbol: "AAPL", Type: models.AlertPercentChange, Value: 0.10})

	f.provider.daily = []models.DailyPrice{
		{Symbol: "AAPL", Date: "2025-06-10", Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000, Provider: "fake"},
		{Symbol: "AAPL", Date: "2025-06-11", Open: 100, High: 116, Low: 99, Close: 115, Volume: 1000, Provider: "fake"},
	}

	result, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1 (15%% move against prior close)", result.Triggered)
	}
}
