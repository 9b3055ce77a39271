package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"stockalert/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Ticker universe
	CREATE TABLE IF NOT EXISTS tickers (
		symbol TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		security_type TEXT NOT NULL,
		exchange TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Daily OHLCV rows, one per symbol and trading date
	CREATE TABLE IF NOT EXISTS daily_prices (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (symbol, date),
		FOREIGN KEY (symbol) REFERENCES tickers(symbol) ON DELETE CASCADE
	);

	-- Intraday OHLCV samples, retained only for the current trading date
	CREATE TABLE IF NOT EXISTS intraday_prices (
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		PRIMARY KEY (symbol, timestamp),
		FOREIGN KEY (symbol) REFERENCES tickers(symbol) ON DELETE CASCADE
	);

	-- Alerts
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		value REAL NOT NULL,
		delete_on_trigger INTEGER NOT NULL DEFAULT 0,
		condition_active INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (symbol) REFERENCES tickers(symbol) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_daily_symbol ON daily_prices(symbol);
	CREATE INDEX IF NOT EXISTS idx_intraday_symbol ON intraday_prices(symbol);
	CREATE INDEX IF NOT EXISTS idx_intraday_date ON intraday_prices(date);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);
	CREATE INDEX IF NOT EXISTS idx_alerts_enabled ON alerts(enabled);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Ticker Methods
// ============================================================================

// UpsertTickers inserts or replaces ticker metadata.
func (s *SQLiteStore) UpsertTickers(ctx context.Context, tickers []models.Ticker) error {
	if len(tickers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO tickers (symbol, name, security_type, exchange, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range tickers {
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.Name, string(t.SecurityType), t.Exchange, t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert ticker %s: %w", t.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTicker retrieves a single ticker by symbol.
func (s *SQLiteStore) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	var t models.Ticker
	var secType string
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, name, security_type, exchange, updated_at FROM tickers WHERE symbol = ?
	`, symbol).Scan(&t.Symbol, &t.Name, &secType, &t.Exchange, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}
	t.SecurityType = models.SecurityType(secType)
	return &t, nil
}

// SearchTickers finds tickers whose symbol or name matches the query.
func (s *SQLiteStore) SearchTickers(ctx context.Context, query string, limit int) ([]models.Ticker, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, name, security_type, exchange, updated_at
		FROM tickers
		WHERE symbol LIKE ? OR name LIKE ?
		ORDER BY symbol ASC
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tickers: %w", err)
	}
	defer rows.Close()

	return scanTickers(rows)
}

func scanTickers(rows *sql.Rows) ([]models.Ticker, error) {
	var tickers []models.Ticker
	for rows.Next() {
		var t models.Ticker
		var secType string
		if err := rows.Scan(&t.Symbol, &t.Name, &secType, &t.Exchange, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		t.SecurityType = models.SecurityType(secType)
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// ListSymbols returns all known symbols in ascending order.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM tickers ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// CountTickers returns the number of known tickers.
func (s *SQLiteStore) CountTickers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tickers: %w", err)
	}
	return count, nil
}

// DeleteTicker removes a ticker; price rows and alerts cascade.
func (s *SQLiteStore) DeleteTicker(ctx context.Context, symbol string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tickers WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("failed to delete ticker: %w", err)
	}
	return nil
}

// ============================================================================
// Daily Price Methods
// ============================================================================

// UpsertDailyPrices inserts or replaces daily rows keyed by (symbol, date).
func (s *SQLiteStore) UpsertDailyPrices(ctx context.Context, prices []models.DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume, provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.ExecContext(ctx, p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, p.Provider); err != nil {
			return fmt.Errorf("failed to insert daily price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetDailyPrices retrieves daily rows in a date range, ascending by date.
// Empty from/to bounds are open-ended.
func (s *SQLiteStore) GetDailyPrices(ctx context.Context, symbol string, from, to string) ([]models.DailyPrice, error) {
	query := `SELECT symbol, date, open, high, low, close, volume, provider FROM daily_prices WHERE symbol = ?`
	args := []interface{}{symbol}
	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []models.DailyPrice
	for rows.Next() {
		var p models.DailyPrice
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.Provider); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// LatestDaily returns the most recent daily row for a symbol.
func (s *SQLiteStore) LatestDaily(ctx context.Context, symbol string) (*models.DailyPrice, error) {
	return s.scanOneDaily(ctx, `
		SELECT symbol, date, open, high, low, close, volume, provider
		FROM daily_prices WHERE symbol = ? ORDER BY date DESC LIMIT 1
	`, symbol)
}

// PreviousDailyBefore returns the most recent daily row strictly before date.
func (s *SQLiteStore) PreviousDailyBefore(ctx context.Context, symbol, date string) (*models.DailyPrice, error) {
	return s.scanOneDaily(ctx, `
		SELECT symbol, date, open, high, low, close, volume, provider
		FROM daily_prices WHERE symbol = ? AND date < ? ORDER BY date DESC LIMIT 1
	`, symbol, date)
}

func (s *SQLiteStore) scanOneDaily(ctx context.Context, query string, args ...interface{}) (*models.DailyPrice, error) {
	var p models.DailyPrice
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.Provider)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query daily price: %w", err)
	}
	return &p, nil
}

// DeleteDailyBefore removes daily rows older than minDate across all symbols.
func (s *SQLiteStore) DeleteDailyBefore(ctx context.Context, minDate string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM daily_prices WHERE date < ?`, minDate)
	if err != nil {
		return 0, fmt.Errorf("failed to trim daily prices: %w", err)
	}
	return res.RowsAffected()
}

// SymbolsWithoutDaily returns up to limit symbols that have no daily history.
func (s *SQLiteStore) SymbolsWithoutDaily(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.symbol FROM tickers t
		LEFT JOIN daily_prices d ON d.symbol = t.symbol
		WHERE d.symbol IS NULL
		ORDER BY t.symbol
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols without daily data: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// CountSymbolsWithoutDaily counts symbols that have no daily history.
func (s *SQLiteStore) CountSymbolsWithoutDaily(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tickers t
		LEFT JOIN daily_prices d ON d.symbol = t.symbol
		WHERE d.symbol IS NULL
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count symbols without daily data: %w", err)
	}
	return count, nil
}

// ============================================================================
// Intraday Price Methods
// ============================================================================

// UpsertIntradayPrices inserts or replaces intraday rows keyed by
// (symbol, timestamp).
func (s *SQLiteStore) UpsertIntradayPrices(ctx context.Context, prices []models.IntradayPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO intraday_prices (symbol, timestamp, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.ExecContext(ctx, p.Symbol, p.Timestamp, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			return fmt.Errorf("failed to insert intraday price: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetIntradayPrices retrieves intraday rows for a trading date, ascending.
func (s *SQLiteStore) GetIntradayPrices(ctx context.Context, symbol, date string) ([]models.IntradayPrice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timestamp, date, open, high, low, close, volume
		FROM intraday_prices
		WHERE symbol = ? AND date = ?
		ORDER BY timestamp ASC
	`, symbol, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query intraday prices: %w", err)
	}
	defer rows.Close()

	var prices []models.IntradayPrice
	for rows.Next() {
		var p models.IntradayPrice
		if err := rows.Scan(&p.Symbol, &p.Timestamp, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan intraday price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// LatestIntraday returns the most recent intraday sample for a symbol.
func (s *SQLiteStore) LatestIntraday(ctx context.Context, symbol string) (*models.IntradayPrice, error) {
	return s.scanOneIntraday(ctx, `
		SELECT symbol, timestamp, date, open, high, low, close, volume
		FROM intraday_prices WHERE symbol = ? ORDER BY timestamp DESC LIMIT 1
	`, symbol)
}

// PreviousIntraday returns the second most recent intraday sample.
func (s *SQLiteStore) PreviousIntraday(ctx context.Context, symbol string) (*models.IntradayPrice, error) {
	return s.scanOneIntraday(ctx, `
		SELECT symbol, timestamp, date, open, high, low, close, volume
		FROM intraday_prices WHERE symbol = ? ORDER BY timestamp DESC LIMIT 1 OFFSET 1
	`, symbol)
}

func (s *SQLiteStore) scanOneIntraday(ctx context.Context, query string, args ...interface{}) (*models.IntradayPrice, error) {
	var p models.IntradayPrice
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.Symbol, &p.Timestamp, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query intraday price: %w", err)
	}
	return &p, nil
}

// DeleteIntradayExcept purges intraday rows not belonging to the given date.
func (s *SQLiteStore) DeleteIntradayExcept(ctx context.Context, date string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM intraday_prices WHERE date != ?`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to trim intraday prices: %w", err)
	}
	return res.RowsAffected()
}

// ============================================================================
// Alert Methods
// ============================================================================

// InsertAlert saves a new alert.
func (s *SQLiteStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, symbol, type, value, delete_on_trigger, condition_active, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.Symbol, string(alert.Type), alert.Value,
		boolToInt(alert.DeleteOnTrigger), boolToInt(alert.ConditionActive), boolToInt(alert.Enabled), alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert retrieves one alert by id.
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, type, value, delete_on_trigger, condition_active, enabled, created_at
		FROM alerts WHERE id = ?
	`, id)

	a, err := scanAlertRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlertRow(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var alertType string
	var deleteOnTrigger, conditionActive, enabled int
	if err := row.Scan(&a.ID, &a.Symbol, &alertType, &a.Value, &deleteOnTrigger, &conditionActive, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = models.AlertType(alertType)
	a.DeleteOnTrigger = deleteOnTrigger == 1
	a.ConditionActive = conditionActive == 1
	a.Enabled = enabled == 1
	return &a, nil
}

func (s *SQLiteStore) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// GetEnabledAlerts returns all enabled alerts ordered by symbol.
func (s *SQLiteStore) GetEnabledAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `
		SELECT id, symbol, type, value, delete_on_trigger, condition_active, enabled, created_at
		FROM alerts WHERE enabled = 1 ORDER BY symbol ASC, created_at ASC
	`)
}

// GetAlertsForSymbol returns all alerts for a symbol, newest first.
func (s *SQLiteStore) GetAlertsForSymbol(ctx context.Context, symbol string) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `
		SELECT id, symbol, type, value, delete_on_trigger, condition_active, enabled, created_at
		FROM alerts WHERE symbol = ? ORDER BY created_at DESC
	`, symbol)
}

// DeleteAlert removes an alert by id.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	return nil
}

// SetAlertConditionActive persists the hysteresis latch state.
func (s *SQLiteStore) SetAlertConditionActive(ctx context.Context, id string, active bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE alerts SET condition_active = ? WHERE id = ?`, boolToInt(active), id); err != nil {
		return fmt.Errorf("failed to update alert state: %w", err)
	}
	return nil
}

// SetAlertEnabled toggles an alert.
func (s *SQLiteStore) SetAlertEnabled(ctx context.Context, id string, enabled bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE alerts SET enabled = ? WHERE id = ?`, boolToInt(enabled), id); err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
