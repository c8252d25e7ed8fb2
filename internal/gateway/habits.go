package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joescharf/eyelife/internal/models"
)

// ListHabits returns active habits with today's state.
func (c *Client) ListHabits(ctx context.Context, includeArchived bool) ([]models.Habit, error) {
	var q url.Values
	if includeArchived {
		q = url.Values{"include_archived": {"true"}}
	}
	var habits []models.Habit
	if err := c.do(ctx, http.MethodGet, "/habits", q, nil, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

func (c *Client) GetHabit(ctx context.Context, id int64) (*models.Habit, error) {
	var h models.Habit
	if err := c.do(ctx, http.MethodGet, habitPath(id), nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHabit creates a habit. The response has no computed fields.
func (c *Client) CreateHabit(ctx context.Context, in models.HabitCreate) (*models.HabitDefinition, error) {
	var def models.HabitDefinition
	if err := c.do(ctx, http.MethodPost, "/habits", nil, in, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (c *Client) UpdateHabit(ctx context.Context, id int64, patch models.HabitUpdate) (*models.HabitDefinition, error) {
	var def models.HabitDefinition
	if err := c.do(ctx, http.MethodPut, habitPath(id), nil, patch, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

func (c *Client) DeleteHabit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, habitPath(id), nil, nil, nil)
}

func (c *Client) ArchiveHabit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, habitPath(id)+"/archive", nil, nil, nil)
}

func (c *Client) UnarchiveHabit(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, habitPath(id)+"/unarchive", nil, nil, nil)
}

// LogHabit records today's completion and time for a habit.
func (c *Client) LogHabit(ctx context.Context, id int64, completed bool, timeSpentSeconds int) (*models.HabitLog, error) {
	body := struct {
		Completed        bool `json:"completed"`
		TimeSpentSeconds int  `json:"time_spent_seconds"`
	}{completed, timeSpentSeconds}

	var log models.HabitLog
	if err := c.do(ctx, http.MethodPost, habitPath(id)+"/log", nil, body, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (c *Client) HabitStats(ctx context.Context, id int64, days int) (*models.HabitStats, error) {
	var stats models.HabitStats
	if err := c.do(ctx, http.MethodGet, habitPath(id)+"/stats", daysQuery(days), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) HabitLogs(ctx context.Context, id int64, days int) ([]models.HabitLog, error) {
	var logs []models.HabitLog
	if err := c.do(ctx, http.MethodGet, habitPath(id)+"/logs", daysQuery(days), nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// HabitsByDate returns every active habit's state on date (YYYY-MM-DD).
func (c *Client) HabitsByDate(ctx context.Context, date string) ([]models.HabitDayLog, error) {
	var out []models.HabitDayLog
	if err := c.do(ctx, http.MethodGet, "/habits/by-date/"+url.PathEscape(date), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateHabitByDate sets a habit's completion and time for date.
func (c *Client) UpdateHabitByDate(ctx context.Context, date string, id int64, completed bool, timeSpentSeconds int) (*models.HabitLog, error) {
	q := url.Values{
		"completed":          {strconv.FormatBool(completed)},
		"time_spent_seconds": {strconv.Itoa(timeSpentSeconds)},
	}
	path := fmt.Sprintf("/habits/by-date/%s/%d", url.PathEscape(date), id)
	var log models.HabitLog
	if err := c.do(ctx, http.MethodPut, path, q, nil, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func habitPath(id int64) string {
	return "/habits/" + strconv.FormatInt(id, 10)
}

func daysQuery(days int) url.Values {
	if days <= 0 {
		days = 30
	}
	return url.Values{"days": {strconv.Itoa(days)}}
}
