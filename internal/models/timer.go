package models

import "time"

// TimerSession is a backend-confirmed timing session. Once EndTime is set
// the record is closed and immutable.
type TimerSession struct {
	ID              int64     `json:"id"`
	HabitID         int64     `json:"habit_id"`
	Date            string    `json:"date"`
	StartTime       Timestamp `json:"start_time"`
	EndTime         Timestamp `json:"end_time"`
	DurationSeconds int       `json:"duration_seconds"`
	IsRunning       bool      `json:"is_running"`
}

// TimerStatus is the backend view of a habit's timer.
type TimerStatus struct {
	IsRunning      bool          `json:"is_running"`
	CurrentSession *TimerSession `json:"current_session"`
	TotalTimeToday int           `json:"total_time_today"`
}

// TodayTime is the backend's total for a habit today, including any running
// session.
type TodayTime struct {
	HabitID      int64 `json:"habit_id"`
	TotalSeconds int   `json:"total_seconds"`
}

// TimerReset acknowledges a timer reset.
type TimerReset struct {
	Message string `json:"message"`
	HabitID int64  `json:"habit_id"`
}

// ActiveTimer is the client's view of the single in-progress timing
// session. ElapsedSeconds = PausedSeconds + whole seconds since StartedAt
// while running; while paused both counters are equal.
type ActiveTimer struct {
	HabitID        int64     `json:"habit_id"`
	StartedAt      time.Time `json:"started_at"`
	PausedSeconds  int       `json:"paused_seconds"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Paused         bool      `json:"paused"`
	// RemoteOpen is set on a paused session whose backend run could not be
	// closed at pause time.
	RemoteOpen bool `json:"remote_open"`
}

// TimerSegment is one closed local run (start or resume until pause or
// stop). Confirmed is false when the backend did not acknowledge the close.
type TimerSegment struct {
	ID        string    `json:"id"`
	HabitID   int64     `json:"habit_id"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Seconds   int       `json:"seconds"`
	Confirmed bool      `json:"confirmed"`
}
