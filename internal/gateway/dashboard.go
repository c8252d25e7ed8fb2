package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joescharf/eyelife/internal/models"
)

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var st models.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// DashboardProgress returns daily completion for the last days days, oldest first.
func (c *Client) DashboardProgress(ctx context.Context, days int) ([]models.DailyProgress, error) {
	if days <= 0 {
		days = 7
	}
	var out []models.DailyProgress
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.do(ctx, http.MethodGet, "/dashboard/progress", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSettings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, patch models.SettingsUpdate) (*models.Settings, error) {
	var s models.Settings
	if err := c.do(ctx, http.MethodPut, "/settings", nil, patch, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ResetAll wipes all backend data.
func (c *Client) ResetAll(ctx context.Context) (*models.Message, error) {
	var m models.Message
	if err := c.do(ctx, http.MethodDelete, "/settings/reset-all", nil, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
