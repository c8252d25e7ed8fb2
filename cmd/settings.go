package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/output"
)

var settingsYes bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change backend settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowRun()
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show backend settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowRun()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a backend setting",
	Long:  "Change a backend setting. Keys: carryover (true or false).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsSetRun(args[0], args[1])
	},
}

var settingsResetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Delete all habits, logs, timers, and notes on the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsResetAllRun()
	},
}

func init() {
	settingsResetAllCmd.Flags().BoolVar(&settingsYes, "yes", false, "Confirm deleting all data")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetAllCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsShowRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	st, err := a.Gateway.GetSettings(context.Background())
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	fmt.Fprintf(ui.Out, "  %-12s %v\n", "carryover", st.CarryoverEnabled)
	return nil
}

func settingsSetRun(key, value string) error {
	var patch models.SettingsUpdate
	switch key {
	case "carryover", "carryover_enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q (want true or false)", key, value)
		}
		patch.CarryoverEnabled = &v
	default:
		return fmt.Errorf("unknown setting %q (known: carryover)", key)
	}

	if dryRun {
		ui.DryRunMsg("Would set %s to %s", key, value)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	st, err := a.Gateway.UpdateSettings(context.Background(), patch)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	ui.Success("carryover is now %s", output.Cyan(strconv.FormatBool(st.CarryoverEnabled)))
	return nil
}

func settingsResetAllRun() error {
	if dryRun {
		ui.DryRunMsg("Would delete all habits, logs, timers, and notes")
		return nil
	}
	if !settingsYes {
		return fmt.Errorf("this deletes all data on the backend; re-run with --yes to confirm")
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if a.Timer.Session() != nil {
		return fmt.Errorf("stop the active timer first")
	}

	msg, err := a.Gateway.ResetAll(ctx)
	if err != nil {
		return fmt.Errorf("reset all: %w", err)
	}
	ui.Success("%s", msg.Message)
	return nil
}
