package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HabitDefinition is the user-authored part of a habit, as returned by the
// create and update endpoints.
type HabitDefinition struct {
	ID                       int64     `json:"id"`
	Name                     string    `json:"name"`
	Description              *string   `json:"description"`
	IsRepeatable             bool      `json:"is_repeatable"`
	HasTimer                 bool      `json:"has_timer"`
	EstimatedDurationSeconds *int      `json:"estimated_duration_seconds"`
	ScheduleDays             []int     `json:"schedule_days"` // 0=Monday .. 6=Sunday; empty means every day
	StartDate                *string   `json:"start_date"`    // YYYY-MM-DD
	IsActive                 bool      `json:"is_active"`
	IsArchived               bool      `json:"is_archived"`
	CreatedAt                Timestamp `json:"created_at"`
}

// Habit is a habit with the server-computed state for today.
type Habit struct {
	HabitDefinition
	CompletedToday   bool `json:"completed_today"`
	TimeSpentToday   int  `json:"time_spent_today"`
	CarryoverSeconds int  `json:"carryover_seconds"`
	DeficitSeconds   int  `json:"deficit_seconds"`
	Streak           int  `json:"streak"`
	IsScheduledToday bool `json:"is_scheduled_today"`
}

// HabitCreate is the payload for creating a habit.
type HabitCreate struct {
	Name                     string  `json:"name"`
	Description              *string `json:"description,omitempty"`
	IsRepeatable             *bool   `json:"is_repeatable,omitempty"`
	HasTimer                 *bool   `json:"has_timer,omitempty"`
	EstimatedDurationSeconds *int    `json:"estimated_duration_seconds,omitempty"`
	ScheduleDays             []int   `json:"schedule_days,omitempty"`
	StartDate                *string `json:"start_date,omitempty"`
}

// HabitUpdate is a partial update; nil fields are left unchanged.
type HabitUpdate struct {
	Name                     *string `json:"name,omitempty"`
	Description              *string `json:"description,omitempty"`
	IsRepeatable             *bool   `json:"is_repeatable,omitempty"`
	HasTimer                 *bool   `json:"has_timer,omitempty"`
	EstimatedDurationSeconds *int    `json:"estimated_duration_seconds,omitempty"`
	ScheduleDays             []int   `json:"schedule_days,omitempty"`
	StartDate                *string `json:"start_date,omitempty"`
	IsArchived               *bool   `json:"is_archived,omitempty"`
}

// HabitLog is one day's record for a habit.
type HabitLog struct {
	ID               int64     `json:"id"`
	HabitID          int64     `json:"habit_id"`
	Date             string    `json:"date"`
	Completed        bool      `json:"completed"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	CreatedAt        Timestamp `json:"created_at"`
}

// HabitStats summarizes a habit over a trailing window.
type HabitStats struct {
	HabitID          int64           `json:"habit_id"`
	HabitName        string          `json:"habit_name"`
	PeriodDays       int             `json:"period_days"`
	CompletedDays    int             `json:"completed_days"`
	CompletionRate   float64         `json:"completion_rate"`
	TotalTimeSeconds int             `json:"total_time_seconds"`
	CurrentStreak    int             `json:"current_streak"`
	Logs             []HabitStatsDay `json:"logs"`
}

// HabitStatsDay is one day inside HabitStats.
type HabitStatsDay struct {
	Date             string `json:"date"`
	Completed        bool   `json:"completed"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// HabitDayLog is a habit's state on a given calendar date.
type HabitDayLog struct {
	HabitID                  int64  `json:"habit_id"`
	HabitName                string `json:"habit_name"`
	HasTimer                 bool   `json:"has_timer"`
	EstimatedDurationSeconds *int   `json:"estimated_duration_seconds"`
	IsScheduled              bool   `json:"is_scheduled"`
	Completed                bool   `json:"completed"`
	TimeSpentSeconds         int    `json:"time_spent_seconds"`
	CarryoverSeconds         int    `json:"carryover_seconds"`
	DeficitSeconds           int    `json:"deficit_seconds"`
}

// Message is the backend's generic acknowledgement body.
type Message struct {
	Message string `json:"message"`
}

// ScheduledOn reports whether the habit's weekday rule includes t's weekday.
// The server is authoritative for IsScheduledToday; this is used for
// display of other dates.
func (d HabitDefinition) ScheduledOn(t time.Time) bool {
	if len(d.ScheduleDays) == 0 {
		return true
	}
	wd := MondayIndex(t.Weekday())
	for _, day := range d.ScheduleDays {
		if day == wd {
			return true
		}
	}
	return false
}

// MondayIndex converts a time.Weekday to the backend's 0=Monday numbering.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

var weekdayNames = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// ParseWeekdays parses a comma-separated list of weekday names ("mon,wed")
// or backend indices ("0,2") into sorted unique 0=Monday indices.
func ParseWeekdays(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		idx := -1
		if n, err := strconv.Atoi(part); err == nil {
			idx = n
		} else {
			for i, name := range weekdayNames {
				if strings.HasPrefix(part, name) {
					idx = i
					break
				}
			}
		}
		if idx < 0 || idx > 6 {
			return nil, fmt.Errorf("invalid weekday: %q", part)
		}
		seen[idx] = true
	}
	var days []int
	for i := range weekdayNames {
		if seen[i] {
			days = append(days, i)
		}
	}
	return days, nil
}

// FormatWeekdays renders 0=Monday indices as "mon,wed"; empty means "daily".
func FormatWeekdays(days []int) string {
	if len(days) == 0 {
		return "daily"
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(weekdayNames) {
			names = append(names, weekdayNames[d])
		}
	}
	return strings.Join(names, ",")
}
