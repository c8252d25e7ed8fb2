package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/output"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or choose the UI color theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		return themeShowRun()
	},
}

var themeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved theme and the choices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return themeShowRun()
	},
}

var themeSetCmd = &cobra.Command{
	Use:       "set <theme>",
	Short:     "Save the theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: themeNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return themeSetRun(args[0])
	},
}

func init() {
	themeCmd.AddCommand(themeShowCmd)
	themeCmd.AddCommand(themeSetCmd)
	rootCmd.AddCommand(themeCmd)
}

func themeNames() []string {
	names := make([]string, len(models.Themes))
	for i, t := range models.Themes {
		names[i] = string(t)
	}
	return names
}

func themeShowRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	current, err := a.Theme(context.Background())
	if err != nil {
		return fmt.Errorf("read theme: %w", err)
	}
	for _, t := range models.Themes {
		mark := " "
		name := string(t)
		if t == current {
			mark = "*"
			name = output.Cyan(name)
		}
		fmt.Fprintf(ui.Out, "%s %s\n", mark, name)
	}
	return nil
}

func themeSetRun(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !models.ValidTheme(name) {
		return fmt.Errorf("unknown theme %q (choose from %s)", name, strings.Join(themeNames(), ", "))
	}
	if dryRun {
		ui.DryRunMsg("Would set theme to %s", name)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	if err := a.SetTheme(context.Background(), name); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	ui.Success("Theme set to %s", output.Cyan(name))
	return nil
}
