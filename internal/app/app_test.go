package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/eyelife/internal/credential"
	"github.com/joescharf/eyelife/internal/models"
)

func newTestApp(t *testing.T, handler http.Handler) (*App, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dbPath := filepath.Join(t.TempDir(), "eyelife.db")
	a, err := New(context.Background(), Config{APIURL: srv.URL + "/api", DBPath: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, dbPath
}

func TestNew_CredentialRoundTripAndBearer(t *testing.T) {
	var auth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/habits", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[{"id":1,"name":"Read","is_scheduled_today":true}]`)
	})
	a, _ := newTestApp(t, mux)
	ctx := context.Background()

	_, err := a.Credentials.Get(ctx)
	assert.True(t, errors.Is(err, credential.ErrNotFound))

	require.NoError(t, a.Credentials.Set(ctx, "tok"))
	require.True(t, a.Habits.Fetch(ctx, false).OK())
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, 1, a.Habits.TotalToday().Get())
}

func TestNew_SessionExpiredClearsStoredToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/habits", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	a, _ := newTestApp(t, mux)
	ctx := context.Background()
	require.NoError(t, a.Credentials.Set(ctx, "stale"))

	assert.False(t, a.Habits.Fetch(ctx, false).OK())
	_, err := a.Credentials.Get(ctx)
	assert.True(t, errors.Is(err, credential.ErrNotFound))
}

func TestTheme(t *testing.T) {
	a, _ := newTestApp(t, http.NewServeMux())
	ctx := context.Background()

	got, err := a.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTheme, got)

	require.NoError(t, a.SetTheme(ctx, "ocean"))
	got, err = a.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeOcean, got)

	assert.Error(t, a.SetTheme(ctx, "neon"))
}

func TestNew_RestoresPersistedSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/timers/start", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"habit_id":7,"date":"2026-10-14","start_time":"2026-10-14T08:00:00","duration_seconds":0,"is_running":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cfg := Config{APIURL: srv.URL + "/api", DBPath: filepath.Join(t.TempDir(), "eyelife.db")}
	ctx := context.Background()

	first, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, first.Timer.Start(ctx, 7, 0))
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()
	assert.True(t, second.Timer.IsRunningFor(7))
}

func TestNew_UnknownCredentialBackend(t *testing.T) {
	_, err := New(context.Background(), Config{
		DBPath:            filepath.Join(t.TempDir(), "eyelife.db"),
		CredentialBackend: "vault",
	})
	assert.Error(t, err)
}
