// Package config provides configuration management for the stock alert engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Engine        EngineConfig       `mapstructure:"engine"`
	Market        MarketConfig       `mapstructure:"market"`
	Providers     ProvidersConfig    `mapstructure:"providers"`
	Bootstrap     BootstrapConfig    `mapstructure:"bootstrap"`
	BulkLoad      BulkLoadConfig     `mapstructure:"bulk_load"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// EngineConfig holds monitoring-cycle configuration.
type EngineConfig struct {
	DBPath         string        `mapstructure:"db_path"`
	DailyWindow    int           `mapstructure:"daily_window"`     // daily rows kept per fetch
	RetentionYears int           `mapstructure:"retention_years"`  // historical horizon
	InterCallDelay time.Duration `mapstructure:"inter_call_delay"` // between provider calls
}

// MarketConfig describes the exchange session window used for gating.
type MarketConfig struct {
	Timezone    string `mapstructure:"timezone"`
	OpenMinute  int    `mapstructure:"open_minute"`  // minutes past local midnight
	CloseMinute int    `mapstructure:"close_minute"` // minutes past local midnight
}

// ProvidersConfig configures the remote price providers.
type ProvidersConfig struct {
	// Order is the fallback chain; the first provider yielding usable rows
	// wins, results are never merged.
	Order        []string           `mapstructure:"order"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
}

// AlphaVantageConfig holds Alpha Vantage provider settings.
type AlphaVantageConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// BootstrapConfig configures the ticker-universe bootstrap.
type BootstrapConfig struct {
	ListingURL       string   `mapstructure:"listing_url"`
	MaxSymbolsPerRun int      `mapstructure:"max_symbols_per_run"`
	Exchanges        []string `mapstructure:"exchanges"`
}

// BulkLoadConfig configures the administrative bulk price load.
type BulkLoadConfig struct {
	MaxSymbols       int           `mapstructure:"max_symbols"`
	PerSymbolTimeout time.Duration `mapstructure:"per_symbol_timeout"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stockalert"
	}
	return filepath.Join(home, ".config", "stockalert")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		if err := writeTemplate(configDir); err != nil {
			return nil, fmt.Errorf("writing config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("engine.db_path", filepath.Join(configDir, "stockalert.db"))
	v.SetDefault("engine.daily_window", 7)
	v.SetDefault("engine.retention_years", 10)
	v.SetDefault("engine.inter_call_delay", 60*time.Millisecond)

	v.SetDefault("market.timezone", "America/New_York")
	v.SetDefault("market.open_minute", 9*60+30)
	v.SetDefault("market.close_minute", 16*60)

	v.SetDefault("providers.order", []string{"yahoo", "alphavantage"})
	v.SetDefault("providers.alphavantage.base_url", "https://www.alphavantage.co")

	v.SetDefault("bootstrap.listing_url", "https://www.nasdaqtrader.com/dynamic/SymDir/otherlisted.txt")
	v.SetDefault("bootstrap.max_symbols_per_run", 25)
	v.SetDefault("bootstrap.exchanges", []string{"N", "P", "A"})

	v.SetDefault("bulk_load.max_symbols", 300)
	v.SetDefault("bulk_load.per_symbol_timeout", 15*time.Second)

	v.SetDefault("notifications.enabled", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("STOCKALERT_DB"); v != "" {
		cfg.Engine.DBPath = v
	}
	if v := os.Getenv("STOCKALERT_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
		cfg.Notifications.Webhook.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.DailyWindow < 1 {
		return fmt.Errorf("engine.daily_window must be at least 1")
	}
	if c.Engine.RetentionYears < 1 {
		return fmt.Errorf("engine.retention_years must be at least 1")
	}
	if c.Market.OpenMinute < 0 || c.Market.OpenMinute >= 24*60 {
		return fmt.Errorf("market.open_minute out of range")
	}
	if c.Market.CloseMinute <= c.Market.OpenMinute || c.Market.CloseMinute > 24*60 {
		return fmt.Errorf("market.close_minute must be after market.open_minute")
	}
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must name at least one provider")
	}
	for _, name := range c.Providers.Order {
		if name != "yahoo" && name != "alphavantage" {
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	if c.Bootstrap.MaxSymbolsPerRun < 1 {
		return fmt.Errorf("bootstrap.max_symbols_per_run must be at least 1")
	}
	if c.BulkLoad.MaxSymbols < 1 {
		return fmt.Errorf("bulk_load.max_symbols must be at least 1")
	}
	return nil
}
