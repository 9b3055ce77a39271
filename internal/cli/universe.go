package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	errs "stockalert/internal/errors"
)

func addUniverseCommands(rootCmd *cobra.Command, app *App) {
	universeCmd := &cobra.Command{
		Use:   "universe",
		Short: "Manage the ticker universe",
	}

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Download the exchange listing and hydrate daily history",
		Long: `Downloads the NYSE listing, upserts the ticker universe, then hydrates
daily history for a bounded batch of symbols that have none yet. Exits
with an error when symbols remain, so the caller can schedule another run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Universe.Run(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd, result, func() {
				fmt.Printf("Universe bootstrap: %d tickers inserted, %d symbols hydrated.\n",
					result.Inserted, result.Hydrated)
				if result.RetryWanted() {
					fmt.Printf("%d symbols still lack daily history; run again to continue.\n",
						result.Remaining)
				}
			})

			if result.RetryWanted() {
				return fmt.Errorf("%w: %d symbols without daily history", errs.ErrBootstrapRetry, result.Remaining)
			}
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show universe coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := app.Store.CountTickers(cmd.Context())
			if err != nil {
				return err
			}
			missing, err := app.Store.CountSymbolsWithoutDaily(cmd.Context())
			if err != nil {
				return err
			}

			status := struct {
				Tickers      int `json:"tickers"`
				WithoutDaily int `json:"without_daily"`
			}{total, missing}

			printResult(cmd, status, func() {
				fmt.Printf("Tickers: %d (%d without daily history)\n", total, missing)
			})
			return nil
		},
	}

	universeCmd.AddCommand(bootstrapCmd, statusCmd)
	rootCmd.AddCommand(universeCmd)
}
