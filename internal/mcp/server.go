package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/eyelife/internal/habits"
	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/timer"
)

// Server exposes the habit store and timer tracker as MCP tools.
type Server struct {
	habits *habits.Store
	timer  *timer.Tracker
}

// NewServer creates the MCP server wrapper.
func NewServer(h *habits.Store, t *timer.Tracker) *Server {
	return &Server{habits: h, timer: t}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("eyelife", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listHabitsTool())
	srv.AddTool(s.todayTool())
	srv.AddTool(s.completeHabitTool())
	srv.AddTool(s.timerStatusTool())
	srv.AddTool(s.timerStartTool())
	srv.AddTool(s.timerPauseTool())
	srv.AddTool(s.timerResumeTool())
	srv.AddTool(s.timerStopTool())
	srv.AddTool(s.timerResetTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Habits
// ---------------------------------------------------------------------------

type habitOut struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	HasTimer       bool   `json:"has_timer"`
	Archived       bool   `json:"archived"`
	ScheduledToday bool   `json:"scheduled_today"`
	CompletedToday bool   `json:"completed_today"`
	TimeSpentToday int    `json:"time_spent_today"`
	TimeSpent      string `json:"time_spent"`
	Streak         int    `json:"streak"`
}

func toHabitOut(h models.Habit) habitOut {
	return habitOut{
		ID:             h.ID,
		Name:           h.Name,
		HasTimer:       h.HasTimer,
		Archived:       h.IsArchived,
		ScheduledToday: h.IsScheduledToday,
		CompletedToday: h.CompletedToday,
		TimeSpentToday: h.TimeSpentToday,
		TimeSpent:      timer.FormatTime(h.TimeSpentToday),
		Streak:         h.Streak,
	}
}

func habitsOut(list []models.Habit) []habitOut {
	out := make([]habitOut, len(list))
	for i, h := range list {
		out[i] = toHabitOut(h)
	}
	return out
}

// habits_list
func (s *Server) listHabitsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("habits_list",
		mcp.WithDescription("List habits from the backend. Returns a JSON array with id, name, schedule flags, completion and today's time."),
		mcp.WithString("view", mcp.Description("Which habits to return: all, active, or archived (default all)")),
	)
	return tool, s.handleListHabits
}

func (s *Server) handleListHabits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := request.GetString("view", "all")
	if view != "all" && view != "active" && view != "archived" {
		return mcp.NewToolResultError(fmt.Sprintf("invalid view: %s", view)), nil
	}
	if out := s.habits.Fetch(ctx, true); !out.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list habits: %v", out.Err)), nil
	}

	list := s.habits.Snapshot()
	switch view {
	case "active":
		list = s.habits.Active().Get()
	case "archived":
		list = s.habits.Archived().Get()
	}
	return jsonResult(habitsOut(list))
}

// habits_today
func (s *Server) todayTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("habits_today",
		mcp.WithDescription("Show today's scheduled habits with the completed count, total, and completion percentage."),
	)
	return tool, s.handleToday
}

func (s *Server) handleToday(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if out := s.habits.Fetch(ctx, s.habits.IncludeArchived()); !out.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load habits: %v", out.Err)), nil
	}
	return jsonResult(map[string]any{
		"habits":     habitsOut(s.habits.Today().Get()),
		"completed":  s.habits.CompletedToday().Get(),
		"total":      s.habits.TotalToday().Get(),
		"percentage": s.habits.CompletionPercentage().Get(),
	})
}

// habit_complete
func (s *Server) completeHabitTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("habit_complete",
		mcp.WithDescription("Mark a habit completed (or not completed) for today."),
		mcp.WithNumber("habit_id", mcp.Required(), mcp.Description("Habit id")),
		mcp.WithBoolean("completed", mcp.Description("Completion flag (default true)")),
	)
	return tool, s.handleCompleteHabit
}

func (s *Server) handleCompleteHabit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := habitID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.habits.Get(id); !ok {
		if out := s.habits.Fetch(ctx, s.habits.IncludeArchived()); !out.OK() {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load habits: %v", out.Err)), nil
		}
		if _, ok := s.habits.Get(id); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("habit not found: %d", id)), nil
		}
	}

	completed := request.GetBool("completed", true)
	if out := s.habits.ToggleComplete(ctx, id, completed); !out.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("failed to log habit: %v", out.Err)), nil
	}
	h, _ := s.habits.Get(id)
	return jsonResult(toHabitOut(h))
}

// ---------------------------------------------------------------------------
// Timer
// ---------------------------------------------------------------------------

type timerOut struct {
	State          string     `json:"state"`
	HabitID        int64      `json:"habit_id,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Elapsed        string     `json:"elapsed"`
	Error          string     `json:"error,omitempty"`
}

func (s *Server) timerView() timerOut {
	out := timerOut{
		State:   s.timer.State().String(),
		Elapsed: s.timer.ElapsedFormatted(),
		Error:   s.timer.Err().Get(),
	}
	if sess := s.timer.Session(); sess != nil {
		out.HabitID = sess.HabitID
		started := sess.StartedAt
		out.StartedAt = &started
		out.ElapsedSeconds = sess.ElapsedSeconds
	}
	return out
}

// timer_status
func (s *Server) timerStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("timer_status",
		mcp.WithDescription("Show the active timer session: state (absent, running, paused), habit id, and elapsed time."),
		mcp.WithNumber("habit_id", mcp.Description("Also ask the backend whether this habit has a running session")),
	)
	return tool, s.handleTimerStatus
}

func (s *Server) handleTimerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := request.GetInt("habit_id", 0); id > 0 {
		// Best effort; an unreachable backend still reports the local view.
		s.timer.CheckStatus(ctx, int64(id))
	}
	return jsonResult(s.timerView())
}

// timer_start
func (s *Server) timerStartTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("timer_start",
		mcp.WithDescription("Start a timer session for a habit. Fails if a session is already active."),
		mcp.WithNumber("habit_id", mcp.Required(), mcp.Description("Habit id")),
		mcp.WithNumber("initial_seconds", mcp.Description("Seconds already spent today, used as the starting elapsed time")),
	)
	return tool, s.handleTimerStart
}

func (s *Server) handleTimerStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := habitID(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	initial := request.GetInt("initial_seconds", 0)
	if _, ok := request.GetArguments()["initial_seconds"]; !ok {
		if h, found := s.habits.Get(id); found {
			initial = h.TimeSpentToday
		}
	}
	if err := s.timer.Start(ctx, id, initial); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start timer: %v", err)), nil
	}
	return jsonResult(s.timerView())
}

// timer_pause
func (s *Server) timerPauseTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("timer_pause",
		mcp.WithDescription("Pause the active timer. The current run is closed on the backend and its time added to the habit."),
	)
	return tool, s.handleTimerPause
}

func (s *Server) handleTimerPause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.timer.State() != timer.StateRunning {
		return mcp.NewToolResultError("no running timer"), nil
	}
	out := s.timer.Pause(ctx)
	view := s.timerView()
	if !out.OK() {
		view.Error = out.Message()
	}
	return jsonResult(view)
}

// timer_resume
func (s *Server) timerResumeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("timer_resume",
		mcp.WithDescription("Resume a paused timer. A new run is opened on the backend."),
	)
	return tool, s.handleTimerResume
}

func (s *Server) handleTimerResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.timer.State() != timer.StatePaused {
		return mcp.NewToolResultError("no paused timer"), nil
	}
	s.timer.Resume(ctx)
	return jsonResult(s.timerView())
}

// timer_stop
func (s *Server) timerStopTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("timer_stop",
		mcp.WithDescription("Stop the active timer and end the session. Returns the closed backend session when one was running."),
	)
	return tool, s.handleTimerStop
}

func (s *Server) handleTimerStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.timer.State() == timer.StateAbsent {
		return mcp.NewToolResultError("no active timer"), nil
	}
	closed, err := s.timer.Stop(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to stop timer: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"timer":   s.timerView(),
		"session": closed,
	})
}

// timer_reset
func (s *Server) timerResetTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("timer_reset",
		mcp.WithDescription("Reset the active timer: clears the habit's saved time for today and zeroes the elapsed counter."),
	)
	return tool, s.handleTimerReset
}

func (s *Server) handleTimerReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.timer.State() == timer.StateAbsent {
		return mcp.NewToolResultError("no active timer"), nil
	}
	if out := s.timer.Reset(ctx); !out.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reset timer: %v", out.Err)), nil
	}
	return jsonResult(s.timerView())
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func habitID(request mcp.CallToolRequest) (int64, error) {
	id, err := request.RequireInt("habit_id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("missing required parameter: habit_id")
	}
	return int64(id), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
