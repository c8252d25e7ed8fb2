package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/habits"
	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/output"
	"github.com/joescharf/eyelife/internal/timer"
)

var (
	habitDesc       string
	habitTimer      bool
	habitEstimate   time.Duration
	habitDays       string
	habitStart      string
	habitName       string
	habitRepeatable bool
	habitArchived   bool
	habitAll        bool
	habitPeriod     int
	habitSetID      int64
	habitSetDone    bool
	habitSetTime    time.Duration
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage habits",
	Long:  "List, create, and complete habits. Running bare 'eyelife habit' shows today's habits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitTodayRun()
	},
}

var habitListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List habits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitListRun()
	},
}

var habitTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's scheduled habits and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitTodayRun()
	},
}

var habitAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitAddRun(cmd, args[0])
	},
}

var habitEditCmd = &cobra.Command{
	Use:   "edit <habit-id>",
	Short: "Update a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitEditRun(cmd, args[0])
	},
}

var habitDoneCmd = &cobra.Command{
	Use:   "done <habit-id>",
	Short: "Mark a habit completed for today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitCompleteRun(args[0], true)
	},
}

var habitUndoCmd = &cobra.Command{
	Use:   "undo <habit-id>",
	Short: "Mark a habit not completed for today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitCompleteRun(args[0], false)
	},
}

var habitArchiveCmd = &cobra.Command{
	Use:   "archive <habit-id>",
	Short: "Archive a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitArchiveRun(args[0], true)
	},
}

var habitUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <habit-id>",
	Short: "Restore an archived habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitArchiveRun(args[0], false)
	},
}

var habitDeleteCmd = &cobra.Command{
	Use:   "delete <habit-id>",
	Short: "Delete a habit and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitDeleteRun(args[0])
	},
}

var habitStatsCmd = &cobra.Command{
	Use:   "stats <habit-id>",
	Short: "Show completion statistics for a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitStatsRun(args[0])
	},
}

var habitLogsCmd = &cobra.Command{
	Use:   "logs <habit-id>",
	Short: "Show a habit's daily log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitLogsRun(args[0])
	},
}

var habitDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Show or edit habits on a given date",
	Long: `Show every habit's state on a date. With --habit, update that habit's
log for the date instead (--completed and --time).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return habitDayRun(cmd, args[0])
	},
}

func init() {
	habitListCmd.Flags().BoolVar(&habitArchived, "archived", false, "Show archived habits only")
	habitListCmd.Flags().BoolVar(&habitAll, "all", false, "Include archived habits")

	habitAddCmd.Flags().StringVar(&habitDesc, "desc", "", "Habit description")
	habitAddCmd.Flags().BoolVar(&habitTimer, "timer", false, "Track time for this habit")
	habitAddCmd.Flags().BoolVar(&habitRepeatable, "repeatable", true, "Habit repeats on its scheduled days")
	habitAddCmd.Flags().DurationVar(&habitEstimate, "estimate", 0, "Daily time goal (e.g. 30m)")
	habitAddCmd.Flags().StringVar(&habitDays, "days", "", "Scheduled weekdays, e.g. mon,wed,fri (default every day)")
	habitAddCmd.Flags().StringVar(&habitStart, "start", "", "First day of the habit (YYYY-MM-DD)")

	habitEditCmd.Flags().StringVar(&habitName, "name", "", "New name")
	habitEditCmd.Flags().StringVar(&habitDesc, "desc", "", "New description")
	habitEditCmd.Flags().BoolVar(&habitTimer, "timer", false, "Track time for this habit")
	habitEditCmd.Flags().BoolVar(&habitRepeatable, "repeatable", true, "Habit repeats on its scheduled days")
	habitEditCmd.Flags().DurationVar(&habitEstimate, "estimate", 0, "Daily time goal (e.g. 30m)")
	habitEditCmd.Flags().StringVar(&habitDays, "days", "", "Scheduled weekdays, e.g. mon,wed,fri")
	habitEditCmd.Flags().StringVar(&habitStart, "start", "", "First day of the habit (YYYY-MM-DD)")

	habitStatsCmd.Flags().IntVar(&habitPeriod, "days", 30, "Number of trailing days")
	habitLogsCmd.Flags().IntVar(&habitPeriod, "days", 30, "Number of trailing days")

	habitDayCmd.Flags().Int64Var(&habitSetID, "habit", 0, "Habit to update on this date")
	habitDayCmd.Flags().BoolVar(&habitSetDone, "completed", false, "Completion flag for the date")
	habitDayCmd.Flags().DurationVar(&habitSetTime, "time", 0, "Time spent on the date (e.g. 25m)")

	habitCmd.AddCommand(habitListCmd)
	habitCmd.AddCommand(habitTodayCmd)
	habitCmd.AddCommand(habitAddCmd)
	habitCmd.AddCommand(habitEditCmd)
	habitCmd.AddCommand(habitDoneCmd)
	habitCmd.AddCommand(habitUndoCmd)
	habitCmd.AddCommand(habitArchiveCmd)
	habitCmd.AddCommand(habitUnarchiveCmd)
	habitCmd.AddCommand(habitDeleteCmd)
	habitCmd.AddCommand(habitStatsCmd)
	habitCmd.AddCommand(habitLogsCmd)
	habitCmd.AddCommand(habitDayCmd)
	rootCmd.AddCommand(habitCmd)
}

func parseHabitID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid habit id: %s", s)
	}
	return id, nil
}

// loadHabit fetches the collection and returns the habit with id.
func loadHabit(ctx context.Context, hs *habits.Store, id int64) (models.Habit, error) {
	if out := hs.Fetch(ctx, true); !out.OK() {
		return models.Habit{}, fmt.Errorf("list habits: %w", out.Err)
	}
	h, ok := hs.Get(id)
	if !ok {
		return models.Habit{}, fmt.Errorf("habit not found: %d", id)
	}
	return h, nil
}

func habitListRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if out := a.Habits.Fetch(ctx, habitAll || habitArchived); !out.OK() {
		return fmt.Errorf("list habits: %w", out.Err)
	}

	list := a.Habits.Active().Get()
	switch {
	case habitArchived:
		list = a.Habits.Archived().Get()
	case habitAll:
		list = a.Habits.Snapshot()
	}

	if len(list) == 0 {
		ui.Info("No habits found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Done", "Time", "Streak", "Days", "Timer"})
	for _, h := range list {
		name := h.Name
		if h.IsArchived {
			name += " (archived)"
		}
		_ = table.Append([]string{
			strconv.FormatInt(h.ID, 10),
			name,
			output.DoneMark(h.CompletedToday),
			timer.FormatTime(h.TimeSpentToday),
			strconv.Itoa(h.Streak),
			models.FormatWeekdays(h.ScheduleDays),
			timerMark(h),
		})
	}
	_ = table.Render()
	return nil
}

func timerMark(h models.Habit) string {
	if !h.HasTimer {
		return ""
	}
	if h.EstimatedDurationSeconds != nil && *h.EstimatedDurationSeconds > 0 {
		return "goal " + timer.FormatTime(*h.EstimatedDurationSeconds)
	}
	return "yes"
}

func habitTodayRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if out := a.Habits.Fetch(ctx, false); !out.OK() {
		return fmt.Errorf("list habits: %w", out.Err)
	}

	today := a.Habits.Today().Get()
	if len(today) == 0 {
		ui.Info("Nothing scheduled today.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Done", "Time", "Streak"})
	for _, h := range today {
		spent := timer.FormatTime(h.TimeSpentToday)
		if a.Timer.IsRunningFor(h.ID) {
			spent = output.TimerStateColor(a.Timer.ElapsedFormatted())
		}
		_ = table.Append([]string{
			strconv.FormatInt(h.ID, 10),
			h.Name,
			output.DoneMark(h.CompletedToday),
			spent,
			strconv.Itoa(h.Streak),
		})
	}
	_ = table.Render()

	pct := a.Habits.CompletionPercentage().Get()
	fmt.Fprintf(ui.Out, "\n%s %d/%d %s\n",
		output.ProgressBar(pct, 20),
		a.Habits.CompletedToday().Get(),
		a.Habits.TotalToday().Get(),
		output.CompletionColor(pct))
	return nil
}

func habitAddRun(cmd *cobra.Command, name string) error {
	in := models.HabitCreate{Name: name}
	if habitDesc != "" {
		in.Description = &habitDesc
	}
	if cmd.Flags().Changed("timer") {
		in.HasTimer = &habitTimer
	}
	if cmd.Flags().Changed("repeatable") {
		in.IsRepeatable = &habitRepeatable
	}
	if habitEstimate > 0 {
		secs := int(habitEstimate.Seconds())
		in.EstimatedDurationSeconds = &secs
	}
	if habitDays != "" {
		days, err := models.ParseWeekdays(habitDays)
		if err != nil {
			return err
		}
		in.ScheduleDays = days
	}
	if habitStart != "" {
		if _, err := time.Parse(models.DateLayout, habitStart); err != nil {
			return fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", habitStart)
		}
		in.StartDate = &habitStart
	}

	if dryRun {
		ui.DryRunMsg("Would create habit: %s", name)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	id, err := a.Habits.Create(context.Background(), in)
	if err != nil {
		return fmt.Errorf("create habit: %w", err)
	}

	ui.Success("Created habit %s: %s", output.Cyan(strconv.FormatInt(id, 10)), name)
	return nil
}

func habitEditRun(cmd *cobra.Command, ref string) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}

	var patch models.HabitUpdate
	changed := false
	if habitName != "" {
		patch.Name = &habitName
		changed = true
	}
	if cmd.Flags().Changed("desc") {
		patch.Description = &habitDesc
		changed = true
	}
	if cmd.Flags().Changed("timer") {
		patch.HasTimer = &habitTimer
		changed = true
	}
	if cmd.Flags().Changed("repeatable") {
		patch.IsRepeatable = &habitRepeatable
		changed = true
	}
	if cmd.Flags().Changed("estimate") {
		secs := int(habitEstimate.Seconds())
		patch.EstimatedDurationSeconds = &secs
		changed = true
	}
	if habitDays != "" {
		days, err := models.ParseWeekdays(habitDays)
		if err != nil {
			return err
		}
		patch.ScheduleDays = days
		changed = true
	}
	if habitStart != "" {
		if _, err := time.Parse(models.DateLayout, habitStart); err != nil {
			return fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", habitStart)
		}
		patch.StartDate = &habitStart
		changed = true
	}

	if !changed {
		return fmt.Errorf("no updates specified (use --name, --desc, --timer, --repeatable, --estimate, --days, or --start)")
	}

	if dryRun {
		ui.DryRunMsg("Would update habit %d", id)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	def, err := a.Habits.UpdateHabit(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("update habit: %w", err)
	}

	ui.Success("Updated habit %s: %s", output.Cyan(strconv.FormatInt(def.ID, 10)), def.Name)
	return nil
}

func habitCompleteRun(ref string, completed bool) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	h, err := loadHabit(ctx, a.Habits, id)
	if err != nil {
		return err
	}

	verb := "done"
	if !completed {
		verb = "not done"
	}
	if dryRun {
		ui.DryRunMsg("Would mark %s %s", h.Name, verb)
		return nil
	}

	if out := a.Habits.ToggleComplete(ctx, id, completed); !out.OK() {
		return fmt.Errorf("log habit: %w", out.Err)
	}

	ui.Success("Marked %s %s", output.Cyan(h.Name), verb)
	fmt.Fprintf(ui.Out, "  Today: %d/%d %s\n",
		a.Habits.CompletedToday().Get(),
		a.Habits.TotalToday().Get(),
		output.CompletionColor(a.Habits.CompletionPercentage().Get()))
	return nil
}

func habitArchiveRun(ref string, archive bool) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}

	action, done := "archive", "Archived"
	if !archive {
		action, done = "unarchive", "Unarchived"
	}
	if dryRun {
		ui.DryRunMsg("Would %s habit %d", action, id)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := loadHabit(ctx, a.Habits, id); err != nil {
		return err
	}
	if archive {
		err = a.Habits.Archive(ctx, id)
	} else {
		err = a.Habits.Unarchive(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("%s habit: %w", action, err)
	}

	ui.Success("%s habit %s", done, output.Cyan(strconv.FormatInt(id, 10)))
	return nil
}

func habitDeleteRun(ref string) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete habit %d", id)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	if out := a.Habits.Delete(context.Background(), id); !out.OK() {
		return fmt.Errorf("delete habit: %w", out.Err)
	}

	ui.Success("Deleted habit %s", output.Cyan(strconv.FormatInt(id, 10)))
	return nil
}

func habitStatsRun(ref string) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}
	a, err := getEngine()
	if err != nil {
		return err
	}

	st, err := a.Gateway.HabitStats(context.Background(), id, habitPeriod)
	if err != nil {
		return fmt.Errorf("habit stats: %w", err)
	}

	rate := int(st.CompletionRate + 0.5)
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(strconv.FormatInt(st.HabitID, 10)), st.HabitName)
	fmt.Fprintf(ui.Out, "  Period:     %d days\n", st.PeriodDays)
	fmt.Fprintf(ui.Out, "  Completed:  %d days %s\n", st.CompletedDays, output.CompletionColor(rate))
	fmt.Fprintf(ui.Out, "  Streak:     %d\n", st.CurrentStreak)
	fmt.Fprintf(ui.Out, "  Total time: %s\n", timer.FormatTime(st.TotalTimeSeconds))
	fmt.Fprintf(ui.Out, "  %s\n", output.ProgressBar(rate, 30))
	return nil
}

func habitLogsRun(ref string) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}
	a, err := getEngine()
	if err != nil {
		return err
	}

	logs, err := a.Gateway.HabitLogs(context.Background(), id, habitPeriod)
	if err != nil {
		return fmt.Errorf("habit logs: %w", err)
	}
	if len(logs) == 0 {
		ui.Info("No logs in the last %d days.", habitPeriod)
		return nil
	}

	table := ui.Table([]string{"Date", "Done", "Time"})
	for _, l := range logs {
		_ = table.Append([]string{
			l.Date,
			output.DoneMark(l.Completed),
			timer.FormatTime(l.TimeSpentSeconds),
		})
	}
	_ = table.Render()
	return nil
}

func habitDayRun(cmd *cobra.Command, date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", date)
	}
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if habitSetID > 0 {
		if dryRun {
			ui.DryRunMsg("Would update habit %d on %s", habitSetID, date)
			return nil
		}
		secs := int(habitSetTime.Seconds())
		if _, err := a.Gateway.UpdateHabitByDate(ctx, date, habitSetID, habitSetDone, secs); err != nil {
			return fmt.Errorf("update habit log: %w", err)
		}
		ui.Success("Updated habit %s on %s", output.Cyan(strconv.FormatInt(habitSetID, 10)), date)
		return nil
	}
	if cmd.Flags().Changed("completed") || cmd.Flags().Changed("time") {
		return fmt.Errorf("--completed and --time need --habit")
	}

	day, err := a.Gateway.HabitsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("habits on %s: %w", date, err)
	}
	if len(day) == 0 {
		ui.Info("No habits on %s.", date)
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Done", "Time", "Scheduled"})
	for _, d := range day {
		scheduled := ""
		if d.IsScheduled {
			scheduled = "yes"
		}
		_ = table.Append([]string{
			strconv.FormatInt(d.HabitID, 10),
			d.HabitName,
			output.DoneMark(d.Completed),
			timer.FormatTime(d.TimeSpentSeconds),
			scheduled,
		})
	}
	_ = table.Render()
	return nil
}
