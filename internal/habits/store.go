// Package habits keeps the local mirror of the habit collection. Mutations
// are applied optimistically and reconciled against the backend's view.
package habits

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/observe"
)

// ErrNotFound is returned when the backend has no habit with the given id.
var ErrNotFound = errors.New("habit not found")

// Gateway is the subset of the backend the habit store talks to.
type Gateway interface {
	ListHabits(ctx context.Context, includeArchived bool) ([]models.Habit, error)
	CreateHabit(ctx context.Context, in models.HabitCreate) (*models.HabitDefinition, error)
	UpdateHabit(ctx context.Context, id int64, patch models.HabitUpdate) (*models.HabitDefinition, error)
	DeleteHabit(ctx context.Context, id int64) error
	ArchiveHabit(ctx context.Context, id int64) error
	UnarchiveHabit(ctx context.Context, id int64) error
	LogHabit(ctx context.Context, id int64, completed bool, timeSpentSeconds int) (*models.HabitLog, error)
	UpdateHabitByDate(ctx context.Context, date string, id int64, completed bool, timeSpentSeconds int) (*models.HabitLog, error)
}

// Store is the habit collection store. The collection slice held by the
// observable is never mutated in place; every write installs a new slice.
type Store struct {
	gw  Gateway
	now func() time.Time

	habits  *observe.Value[[]models.Habit]
	loading *observe.Value[bool]
	err     *observe.Value[string]

	mu              sync.Mutex
	includeArchived bool

	active         *observe.Computed[[]models.Habit]
	archived       *observe.Computed[[]models.Habit]
	today          *observe.Computed[[]models.Habit]
	completedToday *observe.Computed[int]
	totalToday     *observe.Computed[int]
	completionPct  *observe.Computed[int]
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to pick "today" for time updates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store backed by gw.
func New(gw Gateway, opts ...Option) *Store {
	s := &Store{
		gw:      gw,
		now:     time.Now,
		habits:  observe.NewValue[[]models.Habit](nil),
		loading: observe.NewValue(false),
		err:     observe.NewValue(""),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.active = observe.Derive[[]models.Habit](s.habits, func(hs []models.Habit) []models.Habit {
		return filter(hs, func(h models.Habit) bool { return !h.IsArchived })
	})
	s.archived = observe.Derive[[]models.Habit](s.habits, func(hs []models.Habit) []models.Habit {
		return filter(hs, func(h models.Habit) bool { return h.IsArchived })
	})
	s.today = observe.Derive[[]models.Habit](s.habits, func(hs []models.Habit) []models.Habit {
		return filter(hs, func(h models.Habit) bool { return !h.IsArchived && h.IsScheduledToday })
	})
	s.completedToday = observe.Derive[[]models.Habit](s.today, func(hs []models.Habit) int {
		return len(filter(hs, func(h models.Habit) bool { return h.CompletedToday }))
	})
	s.totalToday = observe.Derive[[]models.Habit](s.today, func(hs []models.Habit) int {
		return len(hs)
	})
	// completed and total both derive from today, so recompute from today
	// directly rather than joining two views.
	s.completionPct = observe.Derive[[]models.Habit](s.today, func(hs []models.Habit) int {
		completed := len(filter(hs, func(h models.Habit) bool { return h.CompletedToday }))
		return Percentage(completed, len(hs))
	})
	return s
}

// Percentage returns round(completed/total*100), or 0 when total is 0.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Habits is the observable collection.
func (s *Store) Habits() observe.Readable[[]models.Habit] { return s.habits }

// Loading is true while a fetch or create is in flight.
func (s *Store) Loading() observe.Readable[bool] { return s.loading }

// Err holds the last recorded error message, "" when clear.
func (s *Store) Err() observe.Readable[string] { return s.err }

// Active holds the non-archived habits.
func (s *Store) Active() observe.Readable[[]models.Habit] { return s.active }

// Archived holds the archived habits.
func (s *Store) Archived() observe.Readable[[]models.Habit] { return s.archived }

// Today holds the non-archived habits scheduled for today.
func (s *Store) Today() observe.Readable[[]models.Habit] { return s.today }

// CompletedToday counts today's habits that are completed.
func (s *Store) CompletedToday() observe.Readable[int] { return s.completedToday }

// TotalToday counts today's habits.
func (s *Store) TotalToday() observe.Readable[int] { return s.totalToday }

// CompletionPercentage is today's completion rate, 0 to 100.
func (s *Store) CompletionPercentage() observe.Readable[int] { return s.completionPct }

// Snapshot returns the current collection.
func (s *Store) Snapshot() []models.Habit { return s.habits.Get() }

// Get returns the habit with id from the current collection.
func (s *Store) Get(id int64) (models.Habit, bool) {
	for _, h := range s.habits.Get() {
		if h.ID == id {
			return h, true
		}
	}
	return models.Habit{}, false
}

// IncludeArchived reports the flag of the last Fetch.
func (s *Store) IncludeArchived() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.includeArchived
}

// Fetch replaces the collection with the backend's view. On failure the
// previous collection is kept and the error recorded.
func (s *Store) Fetch(ctx context.Context, includeArchived bool) observe.Outcome {
	s.mu.Lock()
	s.includeArchived = includeArchived
	s.mu.Unlock()

	s.loading.Set(true)
	defer s.loading.Set(false)
	s.err.Set("")

	list, err := s.gw.ListHabits(ctx, includeArchived)
	if err != nil {
		return s.fail(err)
	}
	s.habits.Set(dedupe(list))
	return observe.Outcome{}
}

// Create sends a new habit and re-fetches the collection so server-computed
// fields are present. It returns the new habit's id.
func (s *Store) Create(ctx context.Context, in models.HabitCreate) (int64, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)
	s.err.Set("")

	def, err := s.gw.CreateHabit(ctx, in)
	if err != nil {
		s.fail(err)
		return 0, err
	}

	list, err := s.gw.ListHabits(ctx, s.IncludeArchived())
	if err != nil {
		s.fail(err)
		return def.ID, err
	}
	s.habits.Set(dedupe(list))
	return def.ID, nil
}

// UpdateHabit sends a partial update and merges the returned definition into
// the local record for id. Other records are untouched.
func (s *Store) UpdateHabit(ctx context.Context, id int64, patch models.HabitUpdate) (*models.HabitDefinition, error) {
	def, err := s.gw.UpdateHabit(ctx, id, patch)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.patch(id, func(h *models.Habit) { h.HabitDefinition = *def })
	return def, nil
}

// ToggleComplete marks a habit done or not done for today. The flag flips
// locally first and is not rolled back if the backend call fails. After the
// backend confirms, the collection is re-fetched and merged: every field
// takes the server value except time_spent_today, which keeps the larger of
// the server and local values. A habit missing from the local collection
// is looked up on the backend first, so its saved time is never
// overwritten with zero.
func (s *Store) ToggleComplete(ctx context.Context, id int64, completed bool) observe.Outcome {
	h, ok := s.Get(id)
	if !ok {
		var err error
		if h, err = s.lookup(ctx, id); err != nil {
			return s.fail(err)
		}
	}
	seconds := h.TimeSpentToday
	s.patch(id, func(h *models.Habit) { h.CompletedToday = completed })

	// The log upsert overwrites the day's time, so send what we hold.
	if _, err := s.gw.LogHabit(ctx, id, completed, seconds); err != nil {
		return s.fail(err)
	}

	fresh, err := s.gw.ListHabits(ctx, s.IncludeArchived())
	if err != nil {
		return s.fail(err)
	}
	s.habits.Update(func(current []models.Habit) []models.Habit {
		return mergeTime(dedupe(fresh), current)
	})
	return observe.Outcome{}
}

// Archive sets the archived flag locally, then on the backend.
func (s *Store) Archive(ctx context.Context, id int64) error {
	s.patch(id, func(h *models.Habit) { h.IsArchived = true })
	if err := s.gw.ArchiveHabit(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	return nil
}

// Unarchive clears the archived flag locally, then on the backend.
func (s *Store) Unarchive(ctx context.Context, id int64) error {
	s.patch(id, func(h *models.Habit) { h.IsArchived = false })
	if err := s.gw.UnarchiveHabit(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	return nil
}

// Delete removes the habit once the backend confirms.
func (s *Store) Delete(ctx context.Context, id int64) observe.Outcome {
	if err := s.gw.DeleteHabit(ctx, id); err != nil {
		return s.fail(err)
	}
	s.habits.Update(func(current []models.Habit) []models.Habit {
		return filter(current, func(h models.Habit) bool { return h.ID != id })
	})
	return observe.Outcome{}
}

// UpdateTimeSpent sets today's time for a habit locally and saves it to the
// backend together with the habit's current completion flag.
func (s *Store) UpdateTimeSpent(ctx context.Context, id int64, seconds int) observe.Outcome {
	if seconds < 0 {
		seconds = 0
	}
	var completed bool
	if h, ok := s.Get(id); ok {
		completed = h.CompletedToday
	}
	s.patch(id, func(h *models.Habit) { h.TimeSpentToday = seconds })

	today := models.FormatDate(s.now())
	if _, err := s.gw.UpdateHabitByDate(ctx, today, id, completed, seconds); err != nil {
		return s.fail(err)
	}
	return observe.Outcome{}
}

// AddTimeSpent adds delta seconds to today's time for a habit. It is local
// only; the backend already holds the time a closed session recorded.
func (s *Store) AddTimeSpent(id int64, delta int) {
	s.patch(id, func(h *models.Habit) {
		h.TimeSpentToday += delta
		if h.TimeSpentToday < 0 {
			h.TimeSpentToday = 0
		}
	})
}

// ClearError empties the error slot.
func (s *Store) ClearError() { s.err.Set("") }

// lookup finds id in the backend's full collection without installing it.
func (s *Store) lookup(ctx context.Context, id int64) (models.Habit, error) {
	all, err := s.gw.ListHabits(ctx, true)
	if err != nil {
		return models.Habit{}, err
	}
	for _, h := range all {
		if h.ID == id {
			return h, nil
		}
	}
	return models.Habit{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

func (s *Store) fail(err error) observe.Outcome {
	s.err.Set(err.Error())
	return observe.Failed(err)
}

// patch applies fn to a copy of the record with id and installs a new
// collection. Missing ids are ignored.
func (s *Store) patch(id int64, fn func(*models.Habit)) {
	s.habits.Update(func(current []models.Habit) []models.Habit {
		next := make([]models.Habit, len(current))
		copy(next, current)
		for i := range next {
			if next[i].ID == id {
				fn(&next[i])
			}
		}
		return next
	})
}

// mergeTime keeps the server's records but raises time_spent_today to the
// local value where the local value is larger.
func mergeTime(fresh, local []models.Habit) []models.Habit {
	held := make(map[int64]int, len(local))
	for _, h := range local {
		held[h.ID] = h.TimeSpentToday
	}
	out := make([]models.Habit, len(fresh))
	for i, h := range fresh {
		if t, ok := held[h.ID]; ok && t > h.TimeSpentToday {
			h.TimeSpentToday = t
		}
		out[i] = h
	}
	return out
}

// dedupe keeps one record per id, the last one seen, at the position of
// the first.
func dedupe(list []models.Habit) []models.Habit {
	pos := make(map[int64]int, len(list))
	out := make([]models.Habit, 0, len(list))
	for _, h := range list {
		if i, ok := pos[h.ID]; ok {
			out[i] = h
			continue
		}
		pos[h.ID] = len(out)
		out = append(out, h)
	}
	return out
}

func filter(hs []models.Habit, keep func(models.Habit) bool) []models.Habit {
	out := make([]models.Habit, 0, len(hs))
	for _, h := range hs {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}
