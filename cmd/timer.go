package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/app"
	"github.com/joescharf/eyelife/internal/output"
	"github.com/joescharf/eyelife/internal/timer"
)

var (
	timerInitial time.Duration
	timerWatch   bool
	timerHabit   int64
	timerLimit   int
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Time a habit session",
	Long: `Start, pause, resume, and stop the active timer session.

Only one session can be active at a time. The session is kept in the local
database, so it survives between invocations. Running bare 'eyelife timer'
is the same as 'eyelife timer status'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerStatusRun("")
	},
}

var timerStartCmd = &cobra.Command{
	Use:   "start <habit-id>",
	Short: "Start a session for a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerStartRun(cmd, args[0])
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerPauseRun()
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the paused session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerResumeRun()
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerStopRun()
	},
}

var timerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear today's time for the session's habit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerResetRun()
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status [habit-id]",
	Short: "Show the active session",
	Long: `Show the active session. With <habit-id>, also ask the backend whether
that habit has a running session and adopt it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ref string
		if len(args) > 0 {
			ref = args[0]
		}
		return timerStatusRun(ref)
	},
}

var timerLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show locally journaled timer runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return timerLogRun()
	},
}

func init() {
	timerStartCmd.Flags().DurationVar(&timerInitial, "initial", 0, "Starting elapsed time (default: today's saved time)")
	timerStatusCmd.Flags().BoolVarP(&timerWatch, "watch", "w", false, "Keep printing the elapsed time until interrupted")
	timerLogCmd.Flags().Int64Var(&timerHabit, "habit", 0, "Only show runs for this habit")
	timerLogCmd.Flags().IntVar(&timerLimit, "limit", 20, "Maximum number of runs (0 for all)")

	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerPauseCmd)
	timerCmd.AddCommand(timerResumeCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerResetCmd)
	timerCmd.AddCommand(timerStatusCmd)
	timerCmd.AddCommand(timerLogCmd)
	rootCmd.AddCommand(timerCmd)
}

// requireSession returns the active session or an error naming the state
// the command needs.
func requireSession(a *app.App, want timer.State) (*timer.Session, error) {
	s := a.Timer.Session()
	if s == nil {
		return nil, fmt.Errorf("no active timer (start one with 'eyelife timer start <habit-id>')")
	}
	if want != timer.StateAbsent && a.Timer.State() != want {
		return nil, fmt.Errorf("timer is %s, not %s", a.Timer.State(), want)
	}
	// Names for display only.
	a.Habits.Fetch(context.Background(), false)
	return s, nil
}

func habitLabel(a *app.App, id int64) string {
	if h, ok := a.Habits.Get(id); ok {
		return h.Name
	}
	return "habit " + strconv.FormatInt(id, 10)
}

func timerStartRun(cmd *cobra.Command, ref string) error {
	id, err := parseHabitID(ref)
	if err != nil {
		return err
	}
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if cur := a.Timer.Session(); cur != nil {
		return fmt.Errorf("%w: %s is %s", timer.ErrSessionAlreadyActive, habitLabel(a, cur.HabitID), a.Timer.State())
	}

	h, err := loadHabit(ctx, a.Habits, id)
	if err != nil {
		return err
	}
	initial := h.TimeSpentToday
	if cmd.Flags().Changed("initial") {
		initial = int(timerInitial.Seconds())
	}

	if dryRun {
		ui.DryRunMsg("Would start timer for %s at %s", h.Name, timer.FormatTime(initial))
		return nil
	}

	if err := a.Timer.Start(ctx, id, initial); err != nil {
		return fmt.Errorf("start timer: %w", err)
	}
	ui.Success("Started timer for %s at %s", output.Cyan(h.Name), a.Timer.ElapsedFormatted())
	return nil
}

func timerPauseRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	s, err := requireSession(a, timer.StateRunning)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would pause timer for %s", habitLabel(a, s.HabitID))
		return nil
	}

	out := a.Timer.Pause(context.Background())
	if !out.OK() {
		ui.Warning("Paused locally, but the backend did not record the run: %s", out.Message())
	}
	ui.Success("Paused %s at %s", output.Cyan(habitLabel(a, s.HabitID)), a.Timer.ElapsedFormatted())
	return nil
}

func timerResumeRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	s, err := requireSession(a, timer.StatePaused)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would resume timer for %s", habitLabel(a, s.HabitID))
		return nil
	}

	if out := a.Timer.Resume(context.Background()); !out.OK() {
		ui.Warning("Resumed locally, but the backend did not open a run: %s", out.Message())
	}
	ui.Success("Resumed %s at %s", output.Cyan(habitLabel(a, s.HabitID)), a.Timer.ElapsedFormatted())
	return nil
}

func timerStopRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	s, err := requireSession(a, timer.StateAbsent)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would stop timer for %s", habitLabel(a, s.HabitID))
		return nil
	}

	total := a.Timer.ElapsedFormatted()
	closed, err := a.Timer.Stop(context.Background())
	if err != nil {
		return fmt.Errorf("stop timer: %w", err)
	}
	ui.Success("Stopped %s at %s", output.Cyan(habitLabel(a, s.HabitID)), total)
	if closed != nil {
		ui.VerboseLog("Backend recorded %s for this run", timer.FormatTime(closed.DurationSeconds))
	}
	return nil
}

func timerResetRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	s, err := requireSession(a, timer.StateAbsent)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would clear today's time for %s", habitLabel(a, s.HabitID))
		return nil
	}

	if out := a.Timer.Reset(context.Background()); !out.OK() {
		return fmt.Errorf("reset timer: %w", out.Err)
	}
	ui.Success("Reset %s to %s", output.Cyan(habitLabel(a, s.HabitID)), a.Timer.ElapsedFormatted())
	return nil
}

func timerStatusRun(ref string) error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if ref != "" {
		id, err := parseHabitID(ref)
		if err != nil {
			return err
		}
		if st, out := a.Timer.CheckStatus(ctx, id); !out.OK() {
			ui.Warning("Could not reach the backend: %s", out.Message())
		} else if st != nil {
			ui.VerboseLog("Backend total today: %s", timer.FormatTime(st.TotalTimeToday))
		}
	}

	s := a.Timer.Session()
	if s == nil {
		ui.Info("No active timer.")
		return nil
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(habitLabel(a, s.HabitID)), output.TimerStateColor(a.Timer.State().String()))
	fmt.Fprintf(ui.Out, "  Elapsed:  %s\n", a.Timer.ElapsedFormatted())
	fmt.Fprintf(ui.Out, "  Since:    %s\n", s.StartedAt.Local().Format(time.Kitchen))
	if msg := a.Timer.Err().Get(); msg != "" {
		fmt.Fprintf(ui.Out, "  Error:    %s\n", output.Red(msg))
	}

	if timerWatch {
		return timerWatchRun(a)
	}
	return nil
}

// timerWatchRun prints the elapsed time on every tick until interrupted or
// the session ends.
func timerWatchRun(a *app.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	ended := make(chan struct{})
	var once sync.Once
	unsubscribe := a.Timer.Current().Subscribe(func(s *timer.Session) {
		if s == nil {
			once.Do(func() { close(ended) })
			return
		}
		fmt.Fprintf(ui.Out, "\r  %s  %s ", timer.FormatTime(s.ElapsedSeconds), output.TimerStateColor(a.Timer.State().String()))
	})
	defer unsubscribe()

	select {
	case <-ctx.Done():
	case <-ended:
	}
	fmt.Fprintln(ui.Out)
	return nil
}

func timerLogRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}

	segs, err := a.Store.ListSegments(context.Background(), timerHabit, timerLimit)
	if err != nil {
		return fmt.Errorf("list timer runs: %w", err)
	}
	if len(segs) == 0 {
		ui.Info("No timer runs recorded.")
		return nil
	}

	table := ui.Table([]string{"Habit", "Started", "Ended", "Time", "Recorded"})
	for _, seg := range segs {
		recorded := output.Green("yes")
		if !seg.Confirmed {
			recorded = output.Yellow("local only")
		}
		_ = table.Append([]string{
			strconv.FormatInt(seg.HabitID, 10),
			seg.StartedAt.Local().Format("2006-01-02 15:04:05"),
			seg.EndedAt.Local().Format("15:04:05"),
			timer.FormatTime(seg.Seconds),
			recorded,
		})
	}
	_ = table.Render()
	return nil
}
