package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/joescharf/eyelife/internal/habits"
	"github.com/joescharf/eyelife/internal/notes"
	"github.com/joescharf/eyelife/internal/timer"
)

// Result holds the outcome of refreshing a single collection.
type Result struct {
	Name    string `json:"name"`
	Changed bool   `json:"changed"`
	Error   string `json:"error,omitempty"`
}

// AllResult holds the outcome of refreshing every collection.
type AllResult struct {
	Refreshed int      `json:"refreshed"`
	Total     int      `json:"total"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// Targets are the collections All re-fetches. Nil entries are skipped.
type Targets struct {
	Habits *habits.Store
	Notes  *notes.Store
	Timer  *timer.Tracker
}

// Habits re-fetches the habit collection with its current archived filter.
// Returns true if the collection differs afterwards.
func Habits(ctx context.Context, hs *habits.Store) (bool, error) {
	before := hs.Snapshot()
	if out := hs.Fetch(ctx, hs.IncludeArchived()); !out.OK() {
		return false, out.Err
	}
	return !reflect.DeepEqual(before, hs.Snapshot()), nil
}

// Notes re-fetches today's notes.
func Notes(ctx context.Context, ns *notes.Store) (bool, error) {
	before := ns.Snapshot()
	if out := ns.FetchToday(ctx); !out.OK() {
		return false, out.Err
	}
	return !reflect.DeepEqual(before, ns.Snapshot()), nil
}

// Timer asks the backend about the active session's habit. The local
// session is kept as is, so it never reports a change; a running session
// the backend no longer has open is logged. With no active session there
// is nothing to reconcile.
func Timer(ctx context.Context, tr *timer.Tracker) (bool, error) {
	cur := tr.Session()
	if cur == nil {
		return false, nil
	}

	st, out := tr.CheckStatus(ctx, cur.HabitID)
	if !out.OK() {
		return false, out.Err
	}
	if !cur.Paused && st != nil && !st.IsRunning {
		slog.Warn("backend has no open run for the active timer", "habit_id", cur.HabitID)
	}
	return false, nil
}

// All refreshes every non-nil target in order: habits, timer, notes.
func All(ctx context.Context, t Targets) *AllResult {
	type step struct {
		name string
		run  func(context.Context) (bool, error)
	}
	var steps []step
	if t.Habits != nil {
		steps = append(steps, step{"habits", func(ctx context.Context) (bool, error) { return Habits(ctx, t.Habits) }})
	}
	if t.Timer != nil {
		steps = append(steps, step{"timer", func(ctx context.Context) (bool, error) { return Timer(ctx, t.Timer) }})
	}
	if t.Notes != nil {
		steps = append(steps, step{"notes", func(ctx context.Context) (bool, error) { return Notes(ctx, t.Notes) }})
	}

	result := &AllResult{Total: len(steps)}
	for _, s := range steps {
		r := Result{Name: s.name}
		changed, err := s.run(ctx)
		if err != nil {
			r.Error = fmt.Sprintf("refresh %s: %v", s.name, err)
			result.Failed++
		} else {
			r.Changed = changed
			if changed {
				result.Refreshed++
			}
		}
		result.Results = append(result.Results, r)
	}

	return result
}
