// Package cli provides the command-line interface for the stock alert engine.
package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockalert/internal/config"
	"stockalert/internal/engine"
	"stockalert/internal/ingest"
	"stockalert/internal/logging"
	"stockalert/internal/notify"
	"stockalert/internal/provider"
	"stockalert/internal/store"
	"stockalert/internal/universe"
	"stockalert/pkg/utils"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies, constructed once at startup and
// passed into the commands.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Ingestor *ingest.Orchestrator
	Engine   *engine.Engine
	Notifier *notify.MultiNotifier
	Universe *universe.Bootstrapper
}

// NewApp wires the dependency graph from configuration.
func NewApp(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	dataStore, err := store.NewSQLiteStore(cfg.Engine.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	providers := buildProviders(cfg)

	ingestor := ingest.New(dataStore, providers, logger, ingest.Options{
		DailyWindow:    cfg.Engine.DailyWindow,
		InterCallDelay: cfg.Engine.InterCallDelay,
	})

	notifier := notify.NewMultiNotifier(&cfg.Notifications)
	notifier.AddChannel(notify.NewTerminalNotifier())

	hours := utils.MarketHours{
		Location:    utils.NewYorkLocation,
		OpenMinute:  cfg.Market.OpenMinute,
		CloseMinute: cfg.Market.CloseMinute,
	}
	if cfg.Market.Timezone != "" && cfg.Market.Timezone != "America/New_York" {
		if loc, err := time.LoadLocation(cfg.Market.Timezone); err == nil {
			hours.Location = loc
		}
	}

	eng := engine.New(dataStore, ingestor, notifier, logger, engine.Options{
		RetentionYears: cfg.Engine.RetentionYears,
		Hours:          hours,
	})

	bootstrapper := universe.NewBootstrapper(dataStore, ingestor, logger,
		cfg.Bootstrap.ListingURL, cfg.Bootstrap.Exchanges, cfg.Bootstrap.MaxSymbolsPerRun)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    dataStore,
		Ingestor: ingestor,
		Engine:   eng,
		Notifier: notifier,
		Universe: bootstrapper,
	}, nil
}

func buildProviders(cfg *config.Config) []provider.Provider {
	var providers []provider.Provider
	for _, name := range cfg.Providers.Order {
		switch name {
		case "yahoo":
			providers = append(providers, provider.NewYahooProvider())
		case "alphavantage":
			if cfg.Providers.AlphaVantage.APIKey != "" {
				providers = append(providers,
					provider.NewAlphaVantageProvider(cfg.Providers.AlphaVantage.BaseURL, cfg.Providers.AlphaVantage.APIKey))
			}
		}
	}
	return providers
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) (*cobra.Command, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:   "stockalert",
		Short: "Stock price monitoring and alert engine",
		Long: `stockalert monitors market prices for watched ticker symbols and raises
notifications when user-defined price conditions become true.

An external scheduler should invoke 'stockalert monitor run' every 15-20
minutes; the remaining commands manage alerts, price data and the ticker
universe.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Store.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stockalert)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addMonitorCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addUniverseCommands(rootCmd, app)
	addSearchCommand(rootCmd, app)

	return rootCmd, nil
}

// printResult renders v as JSON when --json is set, else calls text().
func printResult(cmd *cobra.Command, v interface{}, text func()) {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		out, err := json.MarshalIndent(v, "", "  ")
		if err == nil {
			fmt.Println(string(out))
			return
		}
	}
	text()
}
