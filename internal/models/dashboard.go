package models

// DashboardStats aggregates today's progress across habits.
type DashboardStats struct {
	TotalHabits          int     `json:"total_habits"`
	CompletedToday       int     `json:"completed_today"`
	CompletionPercentage float64 `json:"completion_percentage"`
	TotalTimeToday       int     `json:"total_time_today"`
	CurrentStreak        int     `json:"current_streak"`
	NotesToday           int     `json:"notes_today"`
}

// DailyProgress is one day's completion summary.
type DailyProgress struct {
	Date       string  `json:"date"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Settings are the backend application settings.
type Settings struct {
	CarryoverEnabled bool `json:"carryover_enabled"`
}

// SettingsUpdate is a partial settings update.
type SettingsUpdate struct {
	CarryoverEnabled *bool `json:"carryover_enabled,omitempty"`
}
