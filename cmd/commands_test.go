package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/eyelife/internal/models"
)

// fakeBackend serves the handful of endpoints the commands touch.
type fakeBackend struct {
	mu      sync.Mutex
	habits  []models.Habit
	running bool
	token   string
	auth    []string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/habits", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.habits)
	})
	mux.HandleFunc("POST /api/habits/{id}/log", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Completed bool `json:"completed"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		b.mu.Lock()
		for i := range b.habits {
			if b.habits[i].ID == id {
				b.habits[i].CompletedToday = body.Completed
			}
		}
		b.mu.Unlock()
		_, _ = io.WriteString(w, `{"id":1,"habit_id":1,"date":"2026-10-14","completed":true,"time_spent_seconds":0}`)
	})
	mux.HandleFunc("POST /api/timers/start", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.running = true
		b.mu.Unlock()
		_, _ = io.WriteString(w, `{"id":1,"habit_id":2,"date":"2026-10-14","start_time":"2026-10-14T08:00:00","duration_seconds":0,"is_running":true}`)
	})
	mux.HandleFunc("POST /api/timers/stop", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.running {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"No running timer found"}`)
			return
		}
		b.running = false
		_, _ = io.WriteString(w, `{"id":1,"habit_id":2,"date":"2026-10-14","start_time":"2026-10-14T08:00:00","end_time":"2026-10-14T08:00:05","duration_seconds":5,"is_running":false}`)
	})
	mux.HandleFunc("GET /api/settings", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.auth = append(b.auth, r.Header.Get("Authorization"))
		want := "Bearer " + b.token
		b.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid token"}`)
			return
		}
		_, _ = io.WriteString(w, `{"carryover_enabled":true}`)
	})
	mux.HandleFunc("POST /api/notes", func(w http.ResponseWriter, r *http.Request) {
		var in models.NoteCreate
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(models.Note{ID: 7, Content: in.Content, Date: in.Date})
	})
	return mux
}

// cmdEnv builds an isolated environment pointing at a fake backend.
func cmdEnv(t *testing.T) (*fakeBackend, *bytes.Buffer) {
	t.Helper()
	testEnv(t)

	b := &fakeBackend{
		habits: []models.Habit{
			{HabitDefinition: models.HabitDefinition{ID: 1, Name: "Read", IsActive: true}, IsScheduledToday: true},
			{HabitDefinition: models.HabitDefinition{ID: 2, Name: "Focus", IsActive: true, HasTimer: true}, IsScheduledToday: true, TimeSpentToday: 60},
			{HabitDefinition: models.HabitDefinition{ID: 3, Name: "Old", IsArchived: true}},
		},
		token: "secret-token",
	}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	viper.Set("api_url", srv.URL+"/api")

	return b, ui.Out.(*bytes.Buffer)
}

func TestHabitTodayRun(t *testing.T) {
	_, out := cmdEnv(t)

	require.NoError(t, habitTodayRun())
	assert.Contains(t, out.String(), "Read")
	assert.Contains(t, out.String(), "Focus")
	assert.NotContains(t, out.String(), "Old")
	assert.Contains(t, out.String(), "0/2")
}

func TestHabitListRun_Archived(t *testing.T) {
	_, out := cmdEnv(t)
	habitArchived = true
	t.Cleanup(func() { habitArchived = false })

	require.NoError(t, habitListRun())
	assert.Contains(t, out.String(), "Old (archived)")
	assert.NotContains(t, out.String(), "Read")
}

func TestHabitCompleteRun(t *testing.T) {
	b, out := cmdEnv(t)

	require.NoError(t, habitCompleteRun("1", true))
	assert.Contains(t, out.String(), "Marked")
	assert.Contains(t, out.String(), "1/2")

	b.mu.Lock()
	assert.True(t, b.habits[0].CompletedToday)
	b.mu.Unlock()
}

func TestHabitCompleteRun_Errors(t *testing.T) {
	cmdEnv(t)

	err := habitCompleteRun("abc", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid habit id")

	err = habitCompleteRun("42", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "habit not found")
}

func TestHabitCompleteRun_DryRun(t *testing.T) {
	b, _ := cmdEnv(t)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, habitCompleteRun("1", true))
	b.mu.Lock()
	assert.False(t, b.habits[0].CompletedToday, "dry run leaves the backend alone")
	b.mu.Unlock()
}

func TestTimerCommands_Lifecycle(t *testing.T) {
	_, out := cmdEnv(t)

	require.NoError(t, timerStartRun(timerStartCmd, "2"))
	assert.Contains(t, out.String(), "Started timer for")
	assert.Contains(t, out.String(), "00:01:00", "starts from today's saved time")

	err := timerStartRun(timerStartCmd, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")

	// A fresh engine picks the session up from the database.
	closeEngine()
	out.Reset()
	require.NoError(t, timerStatusRun(""))
	assert.Contains(t, out.String(), "Focus")
	assert.Contains(t, out.String(), "running")

	out.Reset()
	require.NoError(t, timerStopRun())
	assert.Contains(t, out.String(), "Stopped")

	closeEngine()
	out.Reset()
	require.NoError(t, timerStatusRun(""))
	assert.Contains(t, out.String(), "No active timer")

	out.Reset()
	require.NoError(t, timerLogRun())
	assert.Contains(t, out.String(), "yes", "the stopped run is journaled as recorded")
}

func TestTimerCommands_NoSession(t *testing.T) {
	cmdEnv(t)

	for name, run := range map[string]func() error{
		"pause":  timerPauseRun,
		"resume": timerResumeRun,
		"stop":   timerStopRun,
		"reset":  timerResetRun,
	} {
		err := run()
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "no active timer", name)
	}
}

func TestThemeCommands(t *testing.T) {
	_, out := cmdEnv(t)

	require.NoError(t, themeShowRun())
	assert.Contains(t, out.String(), "* ")
	assert.Contains(t, out.String(), "dark")

	require.NoError(t, themeSetRun("Ocean"))
	a, err := getEngine()
	require.NoError(t, err)
	theme, err := a.Theme(t.Context())
	require.NoError(t, err)
	assert.Equal(t, models.ThemeOcean, theme)

	err = themeSetRun("neon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown theme")
}

func TestAuthCommands(t *testing.T) {
	b, out := cmdEnv(t)
	origInput := authInput
	authInput = strings.NewReader("secret-token\n")
	t.Cleanup(func() { authInput = origInput })

	require.NoError(t, authLoginRun())
	assert.Contains(t, out.String(), "Signed in")

	out.Reset()
	authCheck = true
	t.Cleanup(func() { authCheck = false })
	require.NoError(t, authStatusRun())
	assert.Contains(t, out.String(), "********oken")
	assert.Contains(t, out.String(), "valid")

	b.mu.Lock()
	assert.Equal(t, "Bearer secret-token", b.auth[len(b.auth)-1])
	b.mu.Unlock()

	require.NoError(t, authLogoutRun())
	out.Reset()
	require.NoError(t, authStatusRun())
	assert.Contains(t, out.String(), "none")
}

func TestAuthLogin_Rejected(t *testing.T) {
	cmdEnv(t)
	authToken = "wrong"
	t.Cleanup(func() { authToken = "" })

	err := authLoginRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")

	a, err := getEngine()
	require.NoError(t, err)
	_, err = a.Credentials.Get(t.Context())
	assert.Error(t, err, "a rejected token is not kept")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("abc"))
	assert.Equal(t, "********6789", maskToken("123456789"))
}

func TestNoteAddRun(t *testing.T) {
	_, out := cmdEnv(t)
	noteDate = "2026-10-14"
	t.Cleanup(func() { noteDate = "" })

	require.NoError(t, noteAddRun("stretch first"))
	assert.Contains(t, out.String(), "Added note")
	assert.Contains(t, out.String(), "2026-10-14")

	noteDate = "14/10/2026"
	err := noteAddRun("bad date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestSettingsResetAll_NeedsConfirmation(t *testing.T) {
	cmdEnv(t)
	settingsYes = false

	err := settingsResetAllRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}
