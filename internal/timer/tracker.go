// Package timer tracks the single active timing session. Elapsed time is
// computed locally from the wall clock between backend round trips, and the
// session is synchronized with the backend at start, pause, resume, stop
// and reset.
//
// An Absent session becomes Running on Start (or CheckStatus finding a
// remote session). Running and Paused alternate through Pause and Resume.
// Stop returns to Absent; Reset zeroes the counters and keeps the mode.
package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/observe"
	"github.com/joescharf/eyelife/internal/store"
)

// ErrSessionAlreadyActive is returned by Start while a session exists. Stop
// or reset the current session first.
var ErrSessionAlreadyActive = errors.New("a timer session is already active")

// Session is the in-progress timing session.
type Session = models.ActiveTimer

// State is the tracker's mode.
type State int

const (
	StateAbsent State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "absent"
	}
}

// Gateway is the subset of the backend the tracker uses.
type Gateway interface {
	StartTimer(ctx context.Context, habitID int64) (*models.TimerSession, error)
	StopTimer(ctx context.Context, habitID int64) (*models.TimerSession, error)
	TimerStatus(ctx context.Context, habitID int64) (*models.TimerStatus, error)
	ResetTimer(ctx context.Context, habitID int64) (*models.TimerReset, error)
}

// HabitTime receives time accumulated by closed sessions.
type HabitTime interface {
	AddTimeSpent(id int64, delta int)
	UpdateTimeSpent(ctx context.Context, id int64, seconds int) observe.Outcome
}

// SessionStore persists the active session and the journal of closed runs.
type SessionStore interface {
	SaveActiveTimer(ctx context.Context, t *models.ActiveTimer) error
	LoadActiveTimer(ctx context.Context) (*models.ActiveTimer, error)
	ClearActiveTimer(ctx context.Context) error
	AppendSegment(ctx context.Context, seg *models.TimerSegment) error
	DeleteSegmentsSince(ctx context.Context, habitID int64, since time.Time) (int64, error)
}

// Tracker owns the process-wide active session. Create one per process and
// Close it on shutdown.
type Tracker struct {
	gw     Gateway
	habits HabitTime
	store  SessionStore
	now    func() time.Time
	every  time.Duration

	// session values are never mutated; transitions install a copy.
	session *observe.Value[*Session]
	loading *observe.Value[bool]
	err     *observe.Value[string]

	mu       sync.Mutex
	tickDone chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithTickInterval overrides the 1 second tick.
func WithTickInterval(d time.Duration) Option {
	return func(t *Tracker) { t.every = d }
}

// WithSessionStore persists the session across processes.
func WithSessionStore(s SessionStore) Option {
	return func(t *Tracker) { t.store = s }
}

// New creates a Tracker with no active session.
func New(gw Gateway, habits HabitTime, opts ...Option) *Tracker {
	t := &Tracker{
		gw:      gw,
		habits:  habits,
		now:     time.Now,
		every:   time.Second,
		session: observe.NewValue[*Session](nil),
		loading: observe.NewValue(false),
		err:     observe.NewValue(""),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current is the observable session; nil when absent.
func (t *Tracker) Current() observe.Readable[*Session] { return t.session }

// Loading is true while start, stop or reset is in flight.
func (t *Tracker) Loading() observe.Readable[bool] { return t.loading }

// Err holds the last recorded error message.
func (t *Tracker) Err() observe.Readable[string] { return t.err }

// Session returns a copy of the active session, or nil.
func (t *Tracker) Session() *Session {
	cur := t.session.Get()
	if cur == nil {
		return nil
	}
	s := *cur
	return &s
}

// State reports the current mode.
func (t *Tracker) State() State {
	cur := t.session.Get()
	switch {
	case cur == nil:
		return StateAbsent
	case cur.Paused:
		return StatePaused
	default:
		return StateRunning
	}
}

func (t *Tracker) IsRunning() bool { return t.State() == StateRunning }
func (t *Tracker) IsPaused() bool  { return t.State() == StatePaused }

// IsRunningFor reports whether the active session, running or paused,
// belongs to habitID.
func (t *Tracker) IsRunningFor(habitID int64) bool {
	cur := t.session.Get()
	return cur != nil && cur.HabitID == habitID
}

// Elapsed returns the session's elapsed seconds as of the last tick.
func (t *Tracker) Elapsed() int {
	if cur := t.session.Get(); cur != nil {
		return cur.ElapsedSeconds
	}
	return 0
}

// ElapsedFormatted returns Elapsed as HH:MM:SS.
func (t *Tracker) ElapsedFormatted() string { return FormatTime(t.Elapsed()) }

// Start opens a session for habitID with initialSeconds already counted.
// No session is created if the backend call fails.
func (t *Tracker) Start(ctx context.Context, habitID int64, initialSeconds int) error {
	if t.session.Get() != nil {
		t.err.Set(ErrSessionAlreadyActive.Error())
		return ErrSessionAlreadyActive
	}
	if initialSeconds < 0 {
		initialSeconds = 0
	}

	t.loading.Set(true)
	defer t.loading.Set(false)
	t.err.Set("")

	if _, err := t.gw.StartTimer(ctx, habitID); err != nil {
		t.err.Set(err.Error())
		return err
	}

	s := &Session{
		HabitID:        habitID,
		StartedAt:      t.now(),
		PausedSeconds:  initialSeconds,
		ElapsedSeconds: initialSeconds,
	}
	t.session.Set(s)
	t.persist(ctx, s)
	t.startTicking()
	return nil
}

// CheckStatus asks the backend for a running session of habitID and, if
// there is one and no session is active locally, adopts it anchored to the
// remote start instant. An active local session is never replaced: its
// paused total and initial seconds are not known to the backend. Errors are
// swallowed; the status is nil when the backend could not be reached.
func (t *Tracker) CheckStatus(ctx context.Context, habitID int64) (*models.TimerStatus, observe.Outcome) {
	st, err := t.gw.TimerStatus(ctx, habitID)
	if err != nil {
		slog.Debug("check timer status", "habit_id", habitID, "error", err)
		return nil, observe.Failed(err)
	}
	if !st.IsRunning || st.CurrentSession == nil {
		return st, observe.Outcome{}
	}

	remote := &Session{
		HabitID:   habitID,
		StartedAt: st.CurrentSession.StartTime.Time,
	}
	remote.ElapsedSeconds = elapsedAt(remote, t.now())

	var kept *Session
	next := t.session.Update(func(s *Session) *Session {
		if s != nil {
			kept = s
			return s
		}
		return remote
	})
	if kept != nil {
		if kept.HabitID != habitID {
			slog.Warn("remote timer running while another session is active",
				"habit_id", habitID, "active_habit_id", kept.HabitID)
		}
		return st, observe.Outcome{}
	}

	t.persist(ctx, next)
	t.startTicking()
	return st, observe.Outcome{}
}

// Pause closes the current run on the backend and freezes the counters.
// The local pause happens even when the backend call fails; the failure is
// logged and returned in the outcome, and the run's time is then not added
// to the habit.
func (t *Tracker) Pause(ctx context.Context) observe.Outcome {
	cur := t.session.Get()
	if cur == nil || cur.Paused {
		return observe.Outcome{}
	}

	now := t.now()
	elapsed := elapsedAt(cur, now)
	earned := elapsed - cur.PausedSeconds

	_, err := t.gw.StopTimer(ctx, cur.HabitID)
	if err == nil {
		if t.habits != nil {
			t.habits.AddTimeSpent(cur.HabitID, earned)
		}
	} else {
		slog.Warn("persist timer pause", "habit_id", cur.HabitID, "error", err)
	}
	t.journal(ctx, cur, now, earned, err == nil)

	next := t.session.Update(func(s *Session) *Session {
		if s == nil || s.HabitID != cur.HabitID || s.Paused {
			return s
		}
		n := *s
		n.Paused = true
		n.PausedSeconds = elapsed
		n.ElapsedSeconds = elapsed
		n.RemoteOpen = err != nil
		return &n
	})
	t.persist(ctx, next)

	if err != nil {
		return observe.Failed(err)
	}
	return observe.Outcome{}
}

// Resume opens a new backend run and continues counting from the paused
// total. If the backend call fails the error is recorded and counting
// resumes locally anyway.
func (t *Tracker) Resume(ctx context.Context) observe.Outcome {
	cur := t.session.Get()
	if cur == nil || !cur.Paused {
		return observe.Outcome{}
	}

	_, err := t.gw.StartTimer(ctx, cur.HabitID)
	if err != nil {
		slog.Warn("resume timer", "habit_id", cur.HabitID, "error", err)
		t.err.Set(err.Error())
	}

	now := t.now()
	next := t.session.Update(func(s *Session) *Session {
		if s == nil || s.HabitID != cur.HabitID || !s.Paused {
			return s
		}
		n := *s
		n.Paused = false
		n.RemoteOpen = false
		n.StartedAt = now
		n.ElapsedSeconds = n.PausedSeconds
		return &n
	})
	t.persist(ctx, next)
	t.startTicking()

	if err != nil {
		return observe.Failed(err)
	}
	return observe.Outcome{}
}

// Stop closes the session. A running session is closed on the backend and
// the backend's duration is added to the habit. A paused session whose
// pause the backend confirmed is dropped locally; one whose pause failed
// still has an open backend run, which is closed the same way as a running
// session. On failure the session is left as is and Stop may be retried.
func (t *Tracker) Stop(ctx context.Context) (*models.TimerSession, error) {
	cur := t.session.Get()
	if cur == nil {
		return nil, nil
	}
	if cur.Paused && !cur.RemoteOpen {
		t.stopTicking()
		t.session.Set(nil)
		t.persist(ctx, nil)
		return nil, nil
	}

	t.loading.Set(true)
	defer t.loading.Set(false)
	t.err.Set("")

	closed, err := t.gw.StopTimer(ctx, cur.HabitID)
	if err != nil {
		t.err.Set(err.Error())
		return nil, err
	}

	t.stopTicking()
	if t.habits != nil {
		t.habits.AddTimeSpent(cur.HabitID, closed.DurationSeconds)
	}
	t.journal(ctx, cur, t.now(), closed.DurationSeconds, true)
	t.session.Set(nil)
	t.persist(ctx, nil)
	return closed, nil
}

// Reset clears the habit's saved time for today on the backend and zeroes
// the session's counters without changing its mode. On failure the error is
// recorded and nothing changes locally.
func (t *Tracker) Reset(ctx context.Context) observe.Outcome {
	cur := t.session.Get()
	if cur == nil {
		return observe.Outcome{}
	}

	t.loading.Set(true)
	defer t.loading.Set(false)
	t.err.Set("")

	if _, err := t.gw.ResetTimer(ctx, cur.HabitID); err != nil {
		t.err.Set(err.Error())
		return observe.Failed(err)
	}

	now := t.now()
	next := t.session.Update(func(s *Session) *Session {
		if s == nil || s.HabitID != cur.HabitID {
			return s
		}
		n := *s
		n.StartedAt = now
		n.PausedSeconds = 0
		n.ElapsedSeconds = 0
		return &n
	})
	t.persist(ctx, next)

	if t.store != nil {
		if _, err := t.store.DeleteSegmentsSince(ctx, cur.HabitID, startOfDay(now)); err != nil {
			slog.Warn("clear timer segments", "habit_id", cur.HabitID, "error", err)
		}
	}
	if t.habits != nil {
		return t.habits.UpdateTimeSpent(ctx, cur.HabitID, 0)
	}
	return observe.Outcome{}
}

// Restore loads a session persisted by an earlier process. It is a no-op
// when a session is already active or nothing was saved.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil || t.session.Get() != nil {
		return nil
	}
	saved, err := t.store.LoadActiveTimer(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !saved.Paused {
		saved.ElapsedSeconds = elapsedAt(saved, t.now())
	}
	t.session.Set(saved)
	t.startTicking()
	return nil
}

// Close stops the tick. The session itself is kept (and stays persisted).
func (t *Tracker) Close() {
	t.stopTicking()
}

// tick recomputes elapsed seconds for a running session. It never touches
// the paused total, so extra or late ticks are harmless.
func (t *Tracker) tick() {
	cur := t.session.Get()
	if cur == nil || cur.Paused {
		return
	}
	now := t.now()
	t.session.Update(func(s *Session) *Session {
		if s == nil || s.Paused {
			return s
		}
		e := elapsedAt(s, now)
		if e == s.ElapsedSeconds {
			return s
		}
		n := *s
		n.ElapsedSeconds = e
		return &n
	})
}

// startTicking starts the tick goroutine unless one is already running.
func (t *Tracker) startTicking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickDone != nil {
		return
	}
	done := make(chan struct{})
	t.tickDone = done

	go func() {
		ticker := time.NewTicker(t.every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				t.tick()
			}
		}
	}()
}

func (t *Tracker) stopTicking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickDone != nil {
		close(t.tickDone)
		t.tickDone = nil
	}
}

// ticking reports whether the tick goroutine is active.
func (t *Tracker) ticking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickDone != nil
}

func (t *Tracker) persist(ctx context.Context, s *Session) {
	if t.store == nil {
		return
	}
	var err error
	if s == nil {
		err = t.store.ClearActiveTimer(ctx)
	} else {
		err = t.store.SaveActiveTimer(ctx, s)
	}
	if err != nil {
		slog.Warn("persist timer session", "error", err)
	}
}

// journal records one closed run.
func (t *Tracker) journal(ctx context.Context, s *Session, ended time.Time, seconds int, confirmed bool) {
	if t.store == nil {
		return
	}
	seg := &models.TimerSegment{
		HabitID:   s.HabitID,
		StartedAt: s.StartedAt,
		EndedAt:   ended,
		Seconds:   seconds,
		Confirmed: confirmed,
	}
	if err := t.store.AppendSegment(ctx, seg); err != nil {
		slog.Warn("record timer segment", "habit_id", s.HabitID, "error", err)
	}
}

// elapsedAt is paused + whole seconds since the run started, never
// negative.
func elapsedAt(s *Session, now time.Time) int {
	run := int(now.Sub(s.StartedAt) / time.Second)
	if run < 0 {
		run = 0
	}
	return s.PausedSeconds + run
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
