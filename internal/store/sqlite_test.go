package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/eyelife/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Key-value ---

func TestKV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetValue(ctx, "theme")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.SetValue(ctx, "theme", "ocean"))
	got, err := s.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "ocean", got)

	// Upsert
	require.NoError(t, s.SetValue(ctx, "theme", "forest"))
	got, err = s.GetValue(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "forest", got)

	require.NoError(t, s.DeleteValue(ctx, "theme"))
	_, err = s.GetValue(ctx, "theme")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, s.DeleteValue(ctx, "missing"), "deleting a missing key is fine")
}

// --- Active timer ---

func TestActiveTimer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LoadActiveTimer(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	started := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveActiveTimer(ctx, &models.ActiveTimer{
		HabitID:   7,
		StartedAt: started,
	}))

	got, err := s.LoadActiveTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.HabitID)
	assert.True(t, got.StartedAt.Equal(started))
	assert.False(t, got.Paused)

	// Saving again replaces the single row
	require.NoError(t, s.SaveActiveTimer(ctx, &models.ActiveTimer{
		HabitID:        7,
		StartedAt:      started,
		PausedSeconds:  5,
		ElapsedSeconds: 5,
		Paused:         true,
	}))
	got, err = s.LoadActiveTimer(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.PausedSeconds)
	assert.Equal(t, 5, got.ElapsedSeconds)
	assert.True(t, got.Paused)

	require.NoError(t, s.ClearActiveTimer(ctx))
	_, err = s.LoadActiveTimer(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Segments ---

func TestSegments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	yesterday := time.Date(2026, 10, 13, 20, 0, 0, 0, time.UTC)
	morning := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	noon := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	segs := []*models.TimerSegment{
		{HabitID: 7, StartedAt: yesterday, EndedAt: yesterday.Add(time.Minute), Seconds: 60, Confirmed: true},
		{HabitID: 7, StartedAt: morning, EndedAt: morning.Add(5 * time.Second), Seconds: 5, Confirmed: true},
		{HabitID: 7, StartedAt: noon, EndedAt: noon.Add(10 * time.Second), Seconds: 10},
		{HabitID: 3, StartedAt: morning, EndedAt: morning.Add(time.Second), Seconds: 1, Confirmed: true},
	}
	for _, seg := range segs {
		require.NoError(t, s.AppendSegment(ctx, seg))
		assert.NotEmpty(t, seg.ID, "append assigns an id")
	}

	all, err := s.ListSegments(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := s.ListSegments(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 10, got[0].Seconds, "newest first")
	assert.False(t, got[0].Confirmed)
	assert.True(t, got[1].Confirmed)

	limited, err := s.ListSegments(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, got[0].ID, limited[0].ID)

	n, err := s.DeleteSegmentsSince(ctx, 7, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = s.ListSegments(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 60, got[0].Seconds, "earlier days are kept")

	other, err := s.ListSegments(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, other, 1, "other habits are untouched")
}
