// Package app wires the process-wide singletons: one local store, one
// gateway, one habit store, one notes store and one timer tracker.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joescharf/eyelife/internal/credential"
	"github.com/joescharf/eyelife/internal/gateway"
	"github.com/joescharf/eyelife/internal/habits"
	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/notes"
	"github.com/joescharf/eyelife/internal/store"
	"github.com/joescharf/eyelife/internal/timer"
)

// Credential backends.
const (
	CredentialDB      = "db"
	CredentialKeyring = "keyring"
)

// KeyringService is the OS keyring service name the token is stored under.
const KeyringService = "eyelife"

const themeKey = "theme"

// Config holds what New needs to build the App.
type Config struct {
	APIURL            string
	DBPath            string
	CredentialBackend string
	HTTPTimeout       time.Duration

	// OnSessionExpired runs after a 401 cleared the credential.
	OnSessionExpired func()
}

// App is the application container. Build it once with New and release it
// with Close.
type App struct {
	Store       *store.SQLiteStore
	Credentials credential.Store
	Gateway     *gateway.Client
	Habits      *habits.Store
	Notes       *notes.Store
	NotesByDate *notes.HistoryStore
	Timer       *timer.Tracker
}

// New opens the local store and builds the stores on top of the gateway.
// A session persisted by an earlier process is restored.
func New(ctx context.Context, cfg Config) (*App, error) {
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	creds, err := newCredentials(cfg.CredentialBackend, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gw := gateway.NewWithClient(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout}, creds)
	gw.OnSessionExpired = cfg.OnSessionExpired

	hs := habits.New(gw)
	tr := timer.New(gw, hs, timer.WithSessionStore(db))
	if err := tr.Restore(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("restore timer: %w", err)
	}

	return &App{
		Store:       db,
		Credentials: creds,
		Gateway:     gw,
		Habits:      hs,
		Notes:       notes.New(gw),
		NotesByDate: notes.NewHistory(gw),
		Timer:       tr,
	}, nil
}

// Close stops the timer tick and closes the local store. The active
// session stays persisted.
func (a *App) Close() error {
	if a.Timer != nil {
		a.Timer.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Theme returns the saved theme, or the default.
func (a *App) Theme(ctx context.Context) (models.ThemeName, error) {
	v, err := a.Store.GetValue(ctx, themeKey)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultTheme, nil
	}
	if err != nil {
		return "", err
	}
	if !models.ValidTheme(v) {
		return models.DefaultTheme, nil
	}
	return models.ThemeName(v), nil
}

// SetTheme saves the theme.
func (a *App) SetTheme(ctx context.Context, name string) error {
	if !models.ValidTheme(name) {
		return fmt.Errorf("unknown theme %q", name)
	}
	return a.Store.SetValue(ctx, themeKey, name)
}

func newCredentials(backend string, db *store.SQLiteStore) (credential.Store, error) {
	switch backend {
	case "", CredentialDB:
		return credential.NewKVStore(credentialKV{db}), nil
	case CredentialKeyring:
		if !credential.KeyringAvailable(KeyringService) {
			return nil, credential.ErrKeyringUnavailable
		}
		return credential.NewKeyringStore(KeyringService), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q (want %s or %s)", backend, CredentialDB, CredentialKeyring)
	}
}

// credentialKV reports a missing key the way credential.KVStore expects.
type credentialKV struct {
	*store.SQLiteStore
}

func (c credentialKV) GetValue(ctx context.Context, key string) (string, error) {
	v, err := c.SQLiteStore.GetValue(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", credential.ErrNotFound
	}
	return v, err
}
