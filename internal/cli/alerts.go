package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	errs "stockalert/internal/errors"
	"stockalert/internal/models"
)

func addAlertCommands(rootCmd *cobra.Command, app *App) {
	alertCmd := &cobra.Command{
		Use:   "alert",
		Short: "Manage price alerts",
	}

	addCmd := &cobra.Command{
		Use:   "add <symbol> <type> <value>",
		Short: "Create a price alert",
		Long: `Creates a price alert. Type is one of:

  rises-above     fires when the price moves above <value>
  drops-below     fires when the price moves below <value>
  percent-change  fires when the price moves at least <value> percent
                  from the reference price (previous tick, else prior close)

Threshold alerts re-arm only after the price crosses back through the
threshold. Percent input is given as a percentage, e.g. 20 for 20%.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])

			alertType, err := parseAlertType(args[1])
			if err != nil {
				return err
			}

			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errs.NewValidationError("value", args[2], "must be numeric")
			}
			if value <= 0 {
				return errs.NewValidationError("value", value, "must be positive")
			}
			// Percent input is stored as a fraction.
			if alertType == models.AlertPercentChange {
				value = value / 100.0
			}

			ticker, err := app.Store.GetTicker(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			if ticker == nil {
				return fmt.Errorf("%w: %s (run 'stockalert search %s' first)", errs.ErrSymbolNotFound, symbol, symbol)
			}

			oneShot, _ := cmd.Flags().GetBool("one-shot")
			a := &models.Alert{
				ID:              uuid.NewString(),
				Symbol:          symbol,
				Type:            alertType,
				Value:           value,
				DeleteOnTrigger: oneShot,
				Enabled:         true,
				CreatedAt:       time.Now(),
			}
			if err := app.Store.InsertAlert(cmd.Context(), a); err != nil {
				return err
			}

			printResult(cmd, a, func() {
				fmt.Printf("Alert %s created for %s.\n", a.ID, symbol)
			})
			return nil
		},
	}
	addCmd.Flags().Bool("one-shot", false, "delete the alert after it fires once")

	listCmd := &cobra.Command{
		Use:   "list [symbol]",
		Short: "List alerts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var alerts []models.Alert
			var err error
			if len(args) == 1 {
				alerts, err = app.Store.GetAlertsForSymbol(cmd.Context(), strings.ToUpper(args[0]))
			} else {
				alerts, err = app.Store.GetEnabledAlerts(cmd.Context())
			}
			if err != nil {
				return err
			}

			printResult(cmd, alerts, func() {
				if len(alerts) == 0 {
					fmt.Println("No alerts.")
					return
				}
				for _, a := range alerts {
					fmt.Println(formatAlert(a))
				}
			})
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Store.GetAlert(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a == nil {
				return fmt.Errorf("%w: %s", errs.ErrAlertNotFound, args[0])
			}
			if err := app.Store.DeleteAlert(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Alert %s deleted.\n", args[0])
			return nil
		},
	}

	enableCmd := &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Store.SetAlertEnabled(cmd.Context(), args[0], true)
		},
	}

	disableCmd := &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Store.SetAlertEnabled(cmd.Context(), args[0], false)
		},
	}

	alertCmd.AddCommand(addCmd, listCmd, deleteCmd, enableCmd, disableCmd)
	rootCmd.AddCommand(alertCmd)
}

func parseAlertType(s string) (models.AlertType, error) {
	switch strings.ToLower(s) {
	case "rises-above", "above":
		return models.AlertRisesAbove, nil
	case "drops-below", "below":
		return models.AlertDropsBelow, nil
	case "percent-change", "percent":
		return models.AlertPercentChange, nil
	default:
		return "", errs.NewValidationError("type", s, "must be rises-above, drops-below or percent-change")
	}
}

func formatAlert(a models.Alert) string {
	var condition string
	switch a.Type {
	case models.AlertRisesAbove:
		condition = fmt.Sprintf("rises above %.2f", a.Value)
	case models.AlertDropsBelow:
		condition = fmt.Sprintf("drops below %.2f", a.Value)
	case models.AlertPercentChange:
		condition = fmt.Sprintf("moves %.1f%% from reference", a.Value*100)
	}

	flags := make([]string, 0, 3)
	if a.DeleteOnTrigger {
		flags = append(flags, "one-shot")
	}
	if a.ConditionActive {
		flags = append(flags, "latched")
	}
	if !a.Enabled {
		flags = append(flags, "disabled")
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " [" + strings.Join(flags, ", ") + "]"
	}
	return fmt.Sprintf("%s  %s %s%s", a.ID, a.Symbol, condition, suffix)
}
