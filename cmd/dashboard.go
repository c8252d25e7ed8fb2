package cmd

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/output"
	"github.com/joescharf/eyelife/internal/timer"
)

var dashboardDays int

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Show today's totals and recent progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardRun()
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardDays, "days", 7, "Number of days of progress to show")
	rootCmd.AddCommand(dashboardCmd)
}

func dashboardRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	st, err := a.Gateway.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("dashboard stats: %w", err)
	}

	pct := int(math.Round(st.CompletionPercentage))
	fmt.Fprintf(ui.Out, "%s\n", output.Cyan("Today"))
	fmt.Fprintf(ui.Out, "  Completed:  %d/%d %s %s\n", st.CompletedToday, st.TotalHabits, output.ProgressBar(pct, 20), output.CompletionColor(pct))
	fmt.Fprintf(ui.Out, "  Time:       %s\n", timer.FormatTime(st.TotalTimeToday))
	fmt.Fprintf(ui.Out, "  Streak:     %d\n", st.CurrentStreak)
	fmt.Fprintf(ui.Out, "  Notes:      %d\n", st.NotesToday)

	if s := a.Timer.Session(); s != nil {
		fmt.Fprintf(ui.Out, "  Timer:      habit %d %s %s\n", s.HabitID, output.TimerStateColor(a.Timer.State().String()), a.Timer.ElapsedFormatted())
	}

	if dashboardDays <= 0 {
		return nil
	}
	progress, err := a.Gateway.DashboardProgress(ctx, dashboardDays)
	if err != nil {
		ui.Warning("Could not load progress: %v", err)
		return nil
	}
	if len(progress) == 0 {
		return nil
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Date", "Done", "Progress", ""})
	for _, p := range progress {
		dayPct := int(math.Round(p.Percentage))
		_ = table.Append([]string{
			p.Date,
			strconv.Itoa(p.Completed) + "/" + strconv.Itoa(p.Total),
			output.ProgressBar(dayPct, 20),
			output.CompletionColor(dayPct),
		})
	}
	_ = table.Render()
	return nil
}
