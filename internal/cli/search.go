package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addSearchCommand(rootCmd *cobra.Command, app *App) {
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search providers for symbols matching a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates, err := app.Ingestor.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printResult(cmd, candidates, func() {
				if len(candidates) == 0 {
					fmt.Println("No matches.")
					return
				}
				for _, c := range candidates {
					fmt.Printf("%-8s %-8s %-6s %s\n", c.Symbol, c.Exchange, c.Type, c.Name)
				}
			})
			return nil
		},
	}

	rootCmd.AddCommand(searchCmd)
}
