package habits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/eyelife/internal/models"
)

// fakeGateway is a scripted Gateway. Hooks run inside the call, before it
// returns, which lets tests interleave local mutations with a response.
type fakeGateway struct {
	habits []models.Habit
	err    error

	listCalls     []bool
	logCalls      []logCall
	byDateCalls   []byDateCall
	deleted       []int64
	onList        func()
	onArchive     func()
	createdID     int64
	updatedFields models.HabitDefinition
}

type logCall struct {
	id        int64
	completed bool
	seconds   int
}

type byDateCall struct {
	date      string
	id        int64
	completed bool
	seconds   int
}

func (f *fakeGateway) ListHabits(_ context.Context, includeArchived bool) ([]models.Habit, error) {
	f.listCalls = append(f.listCalls, includeArchived)
	if f.onList != nil {
		f.onList()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Habit, len(f.habits))
	copy(out, f.habits)
	return out, nil
}

func (f *fakeGateway) CreateHabit(_ context.Context, in models.HabitCreate) (*models.HabitDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	def := models.HabitDefinition{ID: f.createdID, Name: in.Name, IsActive: true}
	f.habits = append(f.habits, models.Habit{HabitDefinition: def, IsScheduledToday: true, Streak: 0})
	return &def, nil
}

func (f *fakeGateway) UpdateHabit(_ context.Context, id int64, patch models.HabitUpdate) (*models.HabitDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	def := f.updatedFields
	def.ID = id
	if patch.Name != nil {
		def.Name = *patch.Name
	}
	return &def, nil
}

func (f *fakeGateway) DeleteHabit(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeGateway) ArchiveHabit(context.Context, int64) error {
	if f.onArchive != nil {
		f.onArchive()
	}
	return f.err
}

func (f *fakeGateway) UnarchiveHabit(context.Context, int64) error { return f.err }

func (f *fakeGateway) LogHabit(_ context.Context, id int64, completed bool, seconds int) (*models.HabitLog, error) {
	f.logCalls = append(f.logCalls, logCall{id, completed, seconds})
	if f.err != nil {
		return nil, f.err
	}
	return &models.HabitLog{HabitID: id, Completed: completed, TimeSpentSeconds: seconds}, nil
}

func (f *fakeGateway) UpdateHabitByDate(_ context.Context, date string, id int64, completed bool, seconds int) (*models.HabitLog, error) {
	f.byDateCalls = append(f.byDateCalls, byDateCall{date, id, completed, seconds})
	if f.err != nil {
		return nil, f.err
	}
	return &models.HabitLog{HabitID: id, Date: date, Completed: completed, TimeSpentSeconds: seconds}, nil
}

func habit(id int64, name string, opts ...func(*models.Habit)) models.Habit {
	h := models.Habit{
		HabitDefinition:  models.HabitDefinition{ID: id, Name: name, IsActive: true},
		IsScheduledToday: true,
	}
	for _, o := range opts {
		o(&h)
	}
	return h
}

func archived(h *models.Habit)    { h.IsArchived = true }
func unscheduled(h *models.Habit) { h.IsScheduledToday = false }
func done(h *models.Habit)        { h.CompletedToday = true }
func spent(s int) func(*models.Habit) {
	return func(h *models.Habit) { h.TimeSpentToday = s }
}

func ids(hs []models.Habit) []int64 {
	out := make([]int64, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.ID)
	}
	return out
}

func newTestStore(t *testing.T, gw *fakeGateway) *Store {
	t.Helper()
	s := New(gw, WithClock(func() time.Time {
		return time.Date(2026, 10, 14, 9, 30, 0, 0, time.Local)
	}))
	require.True(t, s.Fetch(context.Background(), false).OK())
	return s
}

func TestFetch_ReplacesCollectionWithServerSet(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read"), habit(2, "Run"), habit(1, "Read again")}}
	s := newTestStore(t, gw)

	assert.Equal(t, []int64{1, 2}, ids(s.Snapshot()), "one record per id")
	h, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Read again", h.Name)

	gw.habits = []models.Habit{habit(3, "Write")}
	require.True(t, s.Fetch(context.Background(), true).OK())
	assert.Equal(t, []int64{3}, ids(s.Snapshot()))
	assert.True(t, s.IncludeArchived())
	assert.False(t, s.Loading().Get())
}

func TestFetch_FailureKeepsCollection(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read")}}
	s := newTestStore(t, gw)

	var loadingSeen []bool
	s.Loading().Subscribe(func(b bool) { loadingSeen = append(loadingSeen, b) })

	gw.err = errors.New("backend down")
	out := s.Fetch(context.Background(), false)
	assert.False(t, out.OK())
	assert.Equal(t, "backend down", out.Message())
	assert.Equal(t, "backend down", s.Err().Get())
	assert.Equal(t, []int64{1}, ids(s.Snapshot()))
	assert.Equal(t, []bool{false, true, false}, loadingSeen)

	gw.err = nil
	require.True(t, s.Fetch(context.Background(), false).OK())
	assert.Empty(t, s.Err().Get(), "fetch clears the prior error")
}

func TestCreate_RefetchesAndReturnsID(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read")}, createdID: 9}
	s := newTestStore(t, gw)

	id, err := s.Create(context.Background(), models.HabitCreate{Name: "Stretch"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	assert.Equal(t, []int64{1, 9}, ids(s.Snapshot()))
	assert.Len(t, gw.listCalls, 2, "create re-fetches the collection")
}

func TestCreate_FailureReturnsError(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestStore(t, gw)

	gw.err = errors.New("name required")
	_, err := s.Create(context.Background(), models.HabitCreate{})
	require.Error(t, err)
	assert.Equal(t, "name required", s.Err().Get())
	assert.False(t, s.Loading().Get())
}

func TestUpdateHabit_MergesOnlyThatRecord(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{
		habit(1, "Read", spent(120), done),
		habit(2, "Run"),
	}}
	s := newTestStore(t, gw)

	name := "Read more"
	def, err := s.UpdateHabit(context.Background(), 1, models.HabitUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Read more", def.Name)

	h, _ := s.Get(1)
	assert.Equal(t, "Read more", h.Name)
	assert.Equal(t, 120, h.TimeSpentToday, "per-day state survives a definition update")
	assert.True(t, h.CompletedToday)

	other, _ := s.Get(2)
	assert.Equal(t, "Run", other.Name)
}

func TestUpdateHabit_NotFoundIsReturned(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read")}}
	s := newTestStore(t, gw)

	gw.err = errors.New("Habit not found")
	name := "x"
	_, err := s.UpdateHabit(context.Background(), 42, models.HabitUpdate{Name: &name})
	require.Error(t, err)
	assert.Equal(t, "Habit not found", s.Err().Get())
}

func TestToggleComplete_OptimisticThenReconciled(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read", spent(30)), habit(2, "Run")}}
	s := newTestStore(t, gw)

	var flagDuringRefetch bool
	gw.onList = func() {
		h, _ := s.Get(1)
		flagDuringRefetch = h.CompletedToday
	}
	gw.habits = []models.Habit{habit(1, "Read", spent(30), done, func(h *models.Habit) { h.Streak = 4 }), habit(2, "Run")}

	out := s.ToggleComplete(context.Background(), 1, true)
	require.True(t, out.OK())
	assert.True(t, flagDuringRefetch, "flag flips before the backend answers")

	require.Len(t, gw.logCalls, 1)
	assert.Equal(t, logCall{id: 1, completed: true, seconds: 30}, gw.logCalls[0], "local time is sent with the log")

	h, _ := s.Get(1)
	assert.True(t, h.CompletedToday)
	assert.Equal(t, 4, h.Streak, "server fields win")
}

func TestToggleComplete_TimeNeverRegresses(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(7, "Focus", spent(100))}}
	s := newTestStore(t, gw)

	// The refresh snapshot predates time a running timer added locally.
	gw.habits = []models.Habit{habit(7, "Focus", spent(100), done)}
	gw.onList = func() { s.AddTimeSpent(7, 25) }

	require.True(t, s.ToggleComplete(context.Background(), 7, true).OK())
	h, _ := s.Get(7)
	assert.Equal(t, 125, h.TimeSpentToday)

	// A server value larger than local wins.
	gw.onList = nil
	gw.habits = []models.Habit{habit(7, "Focus", spent(300), done)}
	require.True(t, s.ToggleComplete(context.Background(), 7, true).OK())
	h, _ = s.Get(7)
	assert.Equal(t, 300, h.TimeSpentToday)
}

func TestToggleComplete_FailureKeepsOptimisticFlag(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read")}}
	s := newTestStore(t, gw)

	gw.err = errors.New("Request failed")
	out := s.ToggleComplete(context.Background(), 1, true)
	assert.False(t, out.OK())
	assert.Equal(t, "Request failed", s.Err().Get())

	h, _ := s.Get(1)
	assert.True(t, h.CompletedToday, "no rollback")
}

func TestToggleComplete_UnknownLocallySendsServerTime(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read"), habit(7, "Focus", spent(900))}}
	s := New(gw)

	require.True(t, s.ToggleComplete(context.Background(), 7, true).OK())
	require.Len(t, gw.logCalls, 1)
	assert.Equal(t, logCall{id: 7, completed: true, seconds: 900}, gw.logCalls[0], "saved time survives the upsert")
	assert.True(t, gw.listCalls[0], "lookup sees archived habits too")

	h, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, 900, h.TimeSpentToday)
}

func TestToggleComplete_UnknownHabitIsNotLogged(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read")}}
	s := New(gw)

	out := s.ToggleComplete(context.Background(), 42, true)
	assert.ErrorIs(t, out.Err, ErrNotFound)
	assert.Empty(t, gw.logCalls)

	gw.err = errors.New("Request failed")
	out = s.ToggleComplete(context.Background(), 42, true)
	assert.False(t, out.OK())
	assert.Empty(t, gw.logCalls, "nothing is sent when the lookup fails")
}

func TestToggleComplete_RefetchKeepsArchivedView(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read"), habit(2, "Old", archived)}}
	s := New(gw)
	require.True(t, s.Fetch(context.Background(), true).OK())

	require.True(t, s.ToggleComplete(context.Background(), 1, true).OK())
	assert.Equal(t, []bool{true, true}, gw.listCalls)
}

func TestArchiveAndUnarchive(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read")}}
	s := newTestStore(t, gw)

	var flagDuringCall bool
	gw.onArchive = func() {
		h, _ := s.Get(1)
		flagDuringCall = h.IsArchived
	}
	require.NoError(t, s.Archive(context.Background(), 1))
	assert.True(t, flagDuringCall, "archived locally before the backend call")
	assert.Empty(t, s.Active().Get())
	assert.Equal(t, []int64{1}, ids(s.Archived().Get()))

	require.NoError(t, s.Unarchive(context.Background(), 1))
	assert.Equal(t, []int64{1}, ids(s.Active().Get()))

	gw.err = errors.New("boom")
	require.Error(t, s.Archive(context.Background(), 1))
	assert.Equal(t, "boom", s.Err().Get())
}

func TestDelete(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(1, "Read"), habit(2, "Run")}}
	s := newTestStore(t, gw)

	gw.err = errors.New("nope")
	assert.False(t, s.Delete(context.Background(), 1).OK())
	assert.Equal(t, []int64{1, 2}, ids(s.Snapshot()), "failure leaves the record")

	gw.err = nil
	require.True(t, s.Delete(context.Background(), 1).OK())
	assert.Equal(t, []int64{2}, ids(s.Snapshot()))
	assert.Equal(t, []int64{1}, gw.deleted)
}

func TestUpdateTimeSpent_SetsLocallyAndPersists(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(7, "Focus", spent(500), done)}}
	s := newTestStore(t, gw)

	require.True(t, s.UpdateTimeSpent(context.Background(), 7, 0).OK())
	h, _ := s.Get(7)
	assert.Equal(t, 0, h.TimeSpentToday)
	require.Len(t, gw.byDateCalls, 1)
	assert.Equal(t, byDateCall{date: "2026-10-14", id: 7, completed: true, seconds: 0}, gw.byDateCalls[0])

	gw.err = errors.New("Failed")
	out := s.UpdateTimeSpent(context.Background(), 7, 60)
	assert.False(t, out.OK())
	h, _ = s.Get(7)
	assert.Equal(t, 60, h.TimeSpentToday, "local value is kept")
}

func TestAddTimeSpent_LocalOnly(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{habit(7, "Focus", spent(10))}}
	s := newTestStore(t, gw)

	s.AddTimeSpent(7, 5)
	s.AddTimeSpent(99, 5)
	h, _ := s.Get(7)
	assert.Equal(t, 15, h.TimeSpentToday)
	assert.Empty(t, gw.byDateCalls)
	assert.Empty(t, gw.logCalls)
}

func TestDerivedViews(t *testing.T) {
	gw := &fakeGateway{habits: []models.Habit{
		habit(1, "Read", done),
		habit(2, "Run"),
		habit(3, "Swim", unscheduled),
		habit(4, "Old", archived, done),
	}}
	s := newTestStore(t, gw)

	assert.Equal(t, []int64{1, 2, 3}, ids(s.Active().Get()))
	assert.Equal(t, []int64{4}, ids(s.Archived().Get()))
	assert.Equal(t, []int64{1, 2}, ids(s.Today().Get()))
	assert.Equal(t, 1, s.CompletedToday().Get())
	assert.Equal(t, 2, s.TotalToday().Get())
	assert.Equal(t, 50, s.CompletionPercentage().Get())

	var pct []int
	s.CompletionPercentage().Subscribe(func(p int) { pct = append(pct, p) })
	s.ToggleComplete(context.Background(), 2, true)
	assert.Contains(t, pct, 100, "views recompute on the optimistic flip")
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 100, Percentage(3, 3))
}
