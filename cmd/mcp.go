package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client read today's habits and drive the timer.
Configure the client with:

  {
    "mcpServers": {
      "eyelife": { "command": "eyelife", "args": ["mcp"] }
    }
  }

Available tools: habits_list, habits_today, habit_complete, timer_status,
timer_start, timer_pause, timer_resume, timer_stop, timer_reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	return mcp.NewServer(a.Habits, a.Timer).ServeStdio(ctx)
}
