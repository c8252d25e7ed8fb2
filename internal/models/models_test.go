package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_ParsesNaiveBackendFormatAsUTC(t *testing.T) {
	var s TimerSession
	err := json.Unmarshal([]byte(`{"id":3,"habit_id":7,"date":"2026-10-14","start_time":"2026-10-14T08:30:05.123456","end_time":null,"duration_seconds":0,"is_running":true}`), &s)
	require.NoError(t, err)

	want := time.Date(2026, 10, 14, 8, 30, 5, 123456000, time.UTC)
	assert.True(t, s.StartTime.Equal(want), "got %v", s.StartTime)
	assert.True(t, s.EndTime.IsZero())
	assert.True(t, s.IsRunning)
}

func TestTimestamp_ParsesRFC3339(t *testing.T) {
	ts, err := ParseTimestamp("2026-10-14T10:00:00+02:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestHabit_DecodesFlattenedDefinition(t *testing.T) {
	body := `{"id":7,"name":"Read","description":null,"is_repeatable":true,"has_timer":true,
		"estimated_duration_seconds":1800,"schedule_days":[0,2,4],"start_date":null,
		"is_active":true,"is_archived":false,"created_at":"2026-01-01T00:00:00",
		"completed_today":false,"time_spent_today":120,"carryover_seconds":0,
		"deficit_seconds":60,"streak":4,"is_scheduled_today":true}`

	var h Habit
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, int64(7), h.ID)
	assert.Equal(t, "Read", h.Name)
	assert.Nil(t, h.Description)
	require.NotNil(t, h.EstimatedDurationSeconds)
	assert.Equal(t, 1800, *h.EstimatedDurationSeconds)
	assert.Equal(t, []int{0, 2, 4}, h.ScheduleDays)
	assert.Equal(t, 120, h.TimeSpentToday)
	assert.Equal(t, 60, h.DeficitSeconds)
	assert.Equal(t, 4, h.Streak)
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays("wed, Mon,friday,mon")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, days)

	days, err = ParseWeekdays("6,0")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 6}, days)

	days, err = ParseWeekdays("")
	require.NoError(t, err)
	assert.Nil(t, days)

	_, err = ParseWeekdays("funday")
	assert.Error(t, err)
	_, err = ParseWeekdays("7")
	assert.Error(t, err)
}

func TestFormatWeekdays(t *testing.T) {
	assert.Equal(t, "daily", FormatWeekdays(nil))
	assert.Equal(t, "mon,sun", FormatWeekdays([]int{0, 6}))
}

func TestScheduledOn(t *testing.T) {
	// 2026-10-14 is a Wednesday.
	wed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, MondayIndex(wed.Weekday()))

	assert.True(t, HabitDefinition{}.ScheduledOn(wed), "no schedule means every day")
	assert.True(t, HabitDefinition{ScheduleDays: []int{2}}.ScheduledOn(wed))
	assert.False(t, HabitDefinition{ScheduleDays: []int{0, 1}}.ScheduledOn(wed))
}

func TestValidTheme(t *testing.T) {
	assert.True(t, ValidTheme("ocean"))
	assert.False(t, ValidTheme("neon"))
}
