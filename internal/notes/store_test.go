package notes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/eyelife/internal/models"
)

type fakeGateway struct {
	notes  []models.Note
	groups []models.NotesByDate
	err    error
	nextID int64
	dates  []string
}

func (f *fakeGateway) ListNotes(_ context.Context, date string) ([]models.Note, error) {
	f.dates = append(f.dates, date)
	return f.notes, f.err
}

func (f *fakeGateway) TodayNotes(context.Context) ([]models.Note, error) { return f.notes, f.err }

func (f *fakeGateway) NotesByDate(_ context.Context, start, end string) ([]models.NotesByDate, error) {
	f.dates = append(f.dates, start, end)
	return f.groups, f.err
}

func (f *fakeGateway) CreateNote(_ context.Context, in models.NoteCreate) (*models.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	return &models.Note{ID: f.nextID, Content: in.Content, Date: in.Date}, nil
}

func (f *fakeGateway) UpdateNote(_ context.Context, id int64, patch models.NoteUpdate) (*models.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Note{ID: id, Content: *patch.Content}, nil
}

func (f *fakeGateway) DeleteNote(context.Context, int64) error { return f.err }

func contents(ns []models.Note) []string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Content)
	}
	return out
}

func TestStore_FetchCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{notes: []models.Note{{ID: 1, Content: "first"}}, nextID: 1}
	s := New(gw)

	require.True(t, s.FetchToday(ctx).OK())
	assert.Equal(t, []string{"first"}, contents(s.Snapshot()))

	n, err := s.Create(ctx, models.NoteCreate{Content: "second", Date: "2026-10-14"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.ID)
	assert.Equal(t, []string{"second", "first"}, contents(s.Snapshot()), "new notes are prepended")

	edited := "first, edited"
	_, err = s.UpdateNote(ctx, 1, models.NoteUpdate{Content: &edited})
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first, edited"}, contents(s.Snapshot()))

	require.True(t, s.Delete(ctx, 2).OK())
	assert.Equal(t, []string{"first, edited"}, contents(s.Snapshot()))
}

func TestStore_FetchByDate(t *testing.T) {
	gw := &fakeGateway{notes: []models.Note{{ID: 5, Content: "old"}}}
	s := New(gw)

	require.True(t, s.FetchByDate(context.Background(), "2026-10-01").OK())
	assert.Equal(t, []string{"2026-10-01"}, gw.dates)
	assert.Len(t, s.Snapshot(), 1)
}

func TestStore_Failures(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{notes: []models.Note{{ID: 1, Content: "keep"}}}
	s := New(gw)
	require.True(t, s.FetchToday(ctx).OK())

	gw.err = errors.New("Failed")
	assert.False(t, s.FetchToday(ctx).OK())
	assert.Equal(t, "Failed", s.Err().Get())
	assert.Equal(t, []string{"keep"}, contents(s.Snapshot()))

	_, err := s.Create(ctx, models.NoteCreate{Content: "x"})
	assert.Error(t, err)
	assert.False(t, s.Loading().Get())

	assert.False(t, s.Delete(ctx, 1).OK())
	assert.Len(t, s.Snapshot(), 1, "failed delete keeps the note")
}

func TestHistoryStore_Fetch(t *testing.T) {
	gw := &fakeGateway{groups: []models.NotesByDate{
		{Date: "2026-10-14", Notes: []models.Note{{ID: 1}}},
		{Date: "2026-10-13", Notes: []models.Note{{ID: 2}, {ID: 3}}},
	}}
	h := NewHistory(gw)

	require.True(t, h.Fetch(context.Background(), "2026-10-01", "").OK())
	assert.Len(t, h.Groups().Get(), 2)
	assert.Equal(t, []string{"2026-10-01", ""}, gw.dates)

	gw.err = errors.New("down")
	out := h.Fetch(context.Background(), "", "")
	assert.Equal(t, "down", out.Message())
	assert.Equal(t, "down", h.Err().Get())
	assert.Len(t, h.Groups().Get(), 2)
}
