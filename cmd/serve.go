package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/eyelife/internal/api"
	"github.com/joescharf/eyelife/internal/app"
	"github.com/joescharf/eyelife/internal/daemon"
	"github.com/joescharf/eyelife/internal/output"
	"github.com/joescharf/eyelife/internal/refresh"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine and serve it to local UIs",
	Long: `Keep the habit store and timer running and expose them over HTTP
under /api/v1. By default it listens on port 8765. Use --port to change it.

Only one server runs at a time. Use 'serve start' to run it in the
background, 'serve stop' to stop it, and 'serve status' to check on it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8765, "port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "serve.log")
}

func serveAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", viper.GetInt("serve.port"))
}

func serveRun() error {
	pf := pidFile()
	addr := serveAddr()
	if err := pf.Acquire(addr); err != nil {
		return err
	}
	defer func() { _ = pf.Release() }()

	a, err := getEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	for _, r := range refresh.All(ctx, refreshTargets(a)).Results {
		if r.Error != "" {
			ui.Warning("Initial %s", r.Error)
		}
	}
	go refreshLoop(ctx, a, viper.GetDuration("serve.refresh_interval"))

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(a.Habits, a.Timer).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Info("Serving eyelife at http://%s/api/v1", addr)
	if s := a.Timer.Session(); s != nil {
		ui.Info("Timer for habit %d is %s at %s", s.HabitID, output.TimerStateColor(a.Timer.State().String()), a.Timer.ElapsedFormatted())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	ui.Info("Server stopped")
	return nil
}

func refreshTargets(a *app.App) refresh.Targets {
	return refresh.Targets{Habits: a.Habits, Notes: a.Notes, Timer: a.Timer}
}

// refreshLoop re-fetches habits, the timer session, and today's notes every
// interval until ctx is done. A non-positive interval disables it.
func refreshLoop(ctx context.Context, a *app.App, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := refresh.All(ctx, refreshTargets(a))
			for _, r := range res.Results {
				if r.Error != "" {
					slog.Warn("periodic refresh", "target", r.Name, "error", r.Error)
				}
			}
			slog.Debug("periodic refresh", "changed", res.Refreshed, "failed", res.Failed)
		}
	}
}

func serveStartRun() error {
	pf := pidFile()
	if rec, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d, %s)", rec.PID, rec.Addr)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	args := []string{"serve", "--port", fmt.Sprint(viper.GetInt("serve.port"))}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	if dryRun {
		ui.DryRunMsg("Would start %s %v (log: %s)", exe, args, serveLogPath())
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(serveLogPath()), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open serve log: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	_ = child.Process.Release()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rec, running := pf.IsRunning(); running {
			ui.Success("Server started (pid %d) at http://%s/api/v1", rec.PID, rec.Addr)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not start; see %s", serveLogPath())
}

func serveStopRun() error {
	pf := pidFile()
	rec, running := pf.IsRunning()
	if !running {
		if rec != nil {
			_ = pf.Remove()
		}
		return daemon.ErrNotRunning
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", rec.PID)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal server: %w", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, running := pf.IsRunning(); !running {
			ui.Success("Server stopped (pid %d)", rec.PID)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	ui.Warning("Server did not exit; killing pid %d", rec.PID)
	if err := pf.Signal(sigKILL()); err != nil {
		return fmt.Errorf("kill server: %w", err)
	}
	_ = pf.Remove()
	return nil
}

func serveStatusRun() error {
	rec, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server not running")
		return nil
	}
	ui.Success("Server running (pid %d) at http://%s/api/v1 since %s",
		rec.PID, rec.Addr, rec.StartedAt.Local().Format(time.RFC3339))
	return nil
}
