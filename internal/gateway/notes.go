package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joescharf/eyelife/internal/models"
)

// ListNotes returns notes, optionally restricted to one date.
func (c *Client) ListNotes(ctx context.Context, date string) ([]models.Note, error) {
	var q url.Values
	if date != "" {
		q = url.Values{"note_date": {date}}
	}
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, "/notes", q, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) TodayNotes(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	if err := c.do(ctx, http.MethodGet, "/notes/today", nil, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// NotesByDate groups notes by date; either bound may be empty.
func (c *Client) NotesByDate(ctx context.Context, startDate, endDate string) ([]models.NotesByDate, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("start_date", startDate)
	}
	if endDate != "" {
		q.Set("end_date", endDate)
	}
	var out []models.NotesByDate
	if err := c.do(ctx, http.MethodGet, "/notes/by-date", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetNote(ctx context.Context, id int64) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodGet, notePath(id), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) CreateNote(ctx context.Context, in models.NoteCreate) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPost, "/notes", nil, in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) UpdateNote(ctx context.Context, id int64, patch models.NoteUpdate) (*models.Note, error) {
	var n models.Note
	if err := c.do(ctx, http.MethodPut, notePath(id), nil, patch, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, notePath(id), nil, nil, nil)
}

func notePath(id int64) string {
	return "/notes/" + strconv.FormatInt(id, 10)
}
