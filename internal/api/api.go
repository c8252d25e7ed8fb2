// Package api serves the running engine to local UIs over HTTP. It holds no
// state of its own: every handler reads or drives the habit store and the
// timer tracker.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/eyelife/internal/gateway"
	"github.com/joescharf/eyelife/internal/habits"
	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/timer"
)

// Server provides the REST API handlers.
type Server struct {
	habits *habits.Store
	timer  *timer.Tracker
}

// NewServer creates a new API server.
func NewServer(h *habits.Store, t *timer.Tracker) *Server {
	return &Server{habits: h, timer: t}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/habits", s.listHabits)
	mux.HandleFunc("POST /api/v1/habits/refresh", s.refreshHabits)
	mux.HandleFunc("POST /api/v1/habits/{id}/complete", s.completeHabit)
	mux.HandleFunc("GET /api/v1/today", s.today)

	mux.HandleFunc("GET /api/v1/timer", s.timerStatus)
	mux.HandleFunc("POST /api/v1/timer/start", s.startTimer)
	mux.HandleFunc("POST /api/v1/timer/pause", s.pauseTimer)
	mux.HandleFunc("POST /api/v1/timer/resume", s.resumeTimer)
	mux.HandleFunc("POST /api/v1/timer/stop", s.stopTimer)
	mux.HandleFunc("POST /api/v1/timer/reset", s.resetTimer)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps an engine error to a status code.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var rf *gateway.RequestFailedError
	switch {
	case errors.Is(err, gateway.ErrSessionExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, timer.ErrSessionAlreadyActive):
		status = http.StatusConflict
	case errors.Is(err, habits.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &rf):
		status = rf.StatusCode
	}
	writeError(w, status, err.Error())
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// --- Habits ---

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	list := s.habits.Snapshot()
	switch r.URL.Query().Get("view") {
	case "active":
		list = s.habits.Active().Get()
	case "archived":
		list = s.habits.Archived().Get()
	}
	if list == nil {
		list = []models.Habit{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) refreshHabits(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	if out := s.habits.Fetch(r.Context(), includeArchived); !out.OK() {
		writeFailure(w, out.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.habits.Snapshot())
}

func (s *Server) completeHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid habit id")
		return
	}
	body := struct {
		Completed *bool `json:"completed"`
	}{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	completed := true
	if body.Completed != nil {
		completed = *body.Completed
	}

	if out := s.habits.ToggleComplete(r.Context(), id, completed); !out.OK() {
		writeFailure(w, out.Err)
		return
	}
	h, found := s.habits.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type todayResponse struct {
	Habits     []models.Habit `json:"habits"`
	Completed  int            `json:"completed"`
	Total      int            `json:"total"`
	Percentage int            `json:"percentage"`
}

func (s *Server) today(w http.ResponseWriter, r *http.Request) {
	list := s.habits.Today().Get()
	if list == nil {
		list = []models.Habit{}
	}
	writeJSON(w, http.StatusOK, todayResponse{
		Habits:     list,
		Completed:  s.habits.CompletedToday().Get(),
		Total:      s.habits.TotalToday().Get(),
		Percentage: s.habits.CompletionPercentage().Get(),
	})
}

// --- Timer ---

type timerResponse struct {
	State          string     `json:"state"`
	HabitID        int64      `json:"habit_id,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	PausedSeconds  int        `json:"paused_seconds"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Elapsed        string     `json:"elapsed"`
	Error          string     `json:"error,omitempty"`
}

func (s *Server) timerView() timerResponse {
	resp := timerResponse{
		State:   s.timer.State().String(),
		Elapsed: s.timer.ElapsedFormatted(),
		Error:   s.timer.Err().Get(),
	}
	if sess := s.timer.Session(); sess != nil {
		resp.HabitID = sess.HabitID
		started := sess.StartedAt
		resp.StartedAt = &started
		resp.PausedSeconds = sess.PausedSeconds
		resp.ElapsedSeconds = sess.ElapsedSeconds
	}
	return resp
}

func (s *Server) timerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.timerView())
}

func (s *Server) startTimer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HabitID        int64 `json:"habit_id"`
		InitialSeconds int   `json:"initial_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if body.HabitID <= 0 {
		writeError(w, http.StatusBadRequest, "habit_id is required")
		return
	}
	if err := s.timer.Start(r.Context(), body.HabitID, body.InitialSeconds); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.timerView())
}

func (s *Server) pauseTimer(w http.ResponseWriter, r *http.Request) {
	if out := s.timer.Pause(r.Context()); !out.OK() {
		// The pause took effect locally; report it with the backend warning.
		slog.Warn("timer pause not confirmed", "error", out.Err)
	}
	writeJSON(w, http.StatusOK, s.timerView())
}

func (s *Server) resumeTimer(w http.ResponseWriter, r *http.Request) {
	s.timer.Resume(r.Context())
	writeJSON(w, http.StatusOK, s.timerView())
}

func (s *Server) stopTimer(w http.ResponseWriter, r *http.Request) {
	closed, err := s.timer.Stop(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timer":   s.timerView(),
		"session": closed,
	})
}

func (s *Server) resetTimer(w http.ResponseWriter, r *http.Request) {
	if out := s.timer.Reset(r.Context()); !out.OK() {
		writeFailure(w, out.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.timerView())
}
