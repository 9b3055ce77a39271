package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addMonitorCommands(rootCmd *cobra.Command, app *App) {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the monitoring cycle",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one monitoring cycle (retention, refresh, alert evaluation)",
		Long: `Executes a single monitoring pass: applies data retention, checks
market-hours gating, refreshes prices for symbols with enabled alerts and
evaluates each alert against the fresh prices.

Intended to be invoked by an external scheduler on a 15-20 minute cadence.
The scheduler must not overlap invocations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Engine.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd, result, func() {
				if result.MarketClosed {
					fmt.Printf("Market closed (%s); retention applied, no evaluation.\n", result.TradingDate)
					return
				}
				fmt.Printf("Cycle complete: %d symbols, %d evaluated, %d triggered, %d refresh failures.\n",
					result.Symbols, result.Evaluated, result.Triggered, result.RefreshFailed)
			})
			return nil
		},
	}

	monitorCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
}
