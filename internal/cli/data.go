package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func addDataCommands(rootCmd *cobra.Command, app *App) {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Manage price data",
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh <symbol>",
		Short: "Refresh price data for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			if ok := app.Ingestor.RefreshSymbol(cmd.Context(), symbol); !ok {
				return fmt.Errorf("refresh failed for %s: no usable rows from any provider", symbol)
			}
			fmt.Printf("Refreshed %s.\n", symbol)
			return nil
		},
	}

	loadAllCmd := &cobra.Command{
		Use:   "load-all",
		Short: "Load recent prices for all known symbols",
		Long: `Administrative bulk load: refreshes recent prices for up to --max-symbols
tickers from the known universe, with a per-symbol timeout. Bounded so a
single run stays within provider rate limits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxSymbols, _ := cmd.Flags().GetInt("max-symbols")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			if maxSymbols <= 0 {
				maxSymbols = app.Config.BulkLoad.MaxSymbols
			}
			if timeout <= 0 {
				timeout = app.Config.BulkLoad.PerSymbolTimeout
			}

			result, err := app.Ingestor.RefreshAll(cmd.Context(), maxSymbols, timeout)
			if err != nil {
				return err
			}

			printResult(cmd, result, func() {
				fmt.Println(result.Summary())
			})
			return nil
		},
	}
	loadAllCmd.Flags().Int("max-symbols", 0, "symbol cap for this run (default from config)")
	loadAllCmd.Flags().Duration("timeout", 0, "per-symbol timeout (default from config)")

	historyCmd := &cobra.Command{
		Use:   "history <symbol>",
		Short: "Show stored daily history for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			prices, err := app.Store.GetDailyPrices(cmd.Context(), symbol, "", "")
			if err != nil {
				return err
			}

			printResult(cmd, prices, func() {
				if len(prices) == 0 {
					fmt.Printf("No daily history for %s.\n", symbol)
					return
				}
				for _, p := range prices {
					fmt.Printf("%s  O %.2f  H %.2f  L %.2f  C %.2f  V %d\n",
						p.Date, p.Open, p.High, p.Low, p.Close, p.Volume)
				}
			})
			return nil
		},
	}

	dataCmd.AddCommand(refreshCmd, loadAllCmd, historyCmd)
	rootCmd.AddCommand(dataCmd)
}
