package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/joescharf/eyelife/internal/models"
)

type timerRequest struct {
	HabitID int64 `json:"habit_id"`
}

// StartTimer opens a remote session for the habit. The backend closes any
// session already running for the same habit.
func (c *Client) StartTimer(ctx context.Context, habitID int64) (*models.TimerSession, error) {
	var s models.TimerSession
	if err := c.do(ctx, http.MethodPost, "/timers/start", nil, timerRequest{habitID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StopTimer closes the habit's running remote session and returns it with
// its authoritative duration.
func (c *Client) StopTimer(ctx context.Context, habitID int64) (*models.TimerSession, error) {
	var s models.TimerSession
	if err := c.do(ctx, http.MethodPost, "/timers/stop", nil, timerRequest{habitID}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) TimerStatus(ctx context.Context, habitID int64) (*models.TimerStatus, error) {
	var st models.TimerStatus
	if err := c.do(ctx, http.MethodGet, timerPath(habitID)+"/status", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) TodayTime(ctx context.Context, habitID int64) (*models.TodayTime, error) {
	var tt models.TodayTime
	if err := c.do(ctx, http.MethodGet, timerPath(habitID)+"/today", nil, nil, &tt); err != nil {
		return nil, err
	}
	return &tt, nil
}

// ResetTimer clears the day's saved time for the habit.
func (c *Client) ResetTimer(ctx context.Context, habitID int64) (*models.TimerReset, error) {
	var r models.TimerReset
	if err := c.do(ctx, http.MethodPost, timerPath(habitID)+"/reset", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func timerPath(habitID int64) string {
	return "/timers/" + strconv.FormatInt(habitID, 10)
}
