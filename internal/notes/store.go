// Package notes mirrors the backend's dated notes.
package notes

import (
	"context"

	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/observe"
)

// Gateway is the subset of the backend the notes stores use.
type Gateway interface {
	ListNotes(ctx context.Context, date string) ([]models.Note, error)
	TodayNotes(ctx context.Context) ([]models.Note, error)
	NotesByDate(ctx context.Context, startDate, endDate string) ([]models.NotesByDate, error)
	CreateNote(ctx context.Context, in models.NoteCreate) (*models.Note, error)
	UpdateNote(ctx context.Context, id int64, patch models.NoteUpdate) (*models.Note, error)
	DeleteNote(ctx context.Context, id int64) error
}

// Store holds the notes of one day, newest first.
type Store struct {
	gw      Gateway
	notes   *observe.Value[[]models.Note]
	loading *observe.Value[bool]
	err     *observe.Value[string]
}

// New creates an empty Store.
func New(gw Gateway) *Store {
	return &Store{
		gw:      gw,
		notes:   observe.NewValue[[]models.Note](nil),
		loading: observe.NewValue(false),
		err:     observe.NewValue(""),
	}
}

func (s *Store) Notes() observe.Readable[[]models.Note] { return s.notes }
func (s *Store) Loading() observe.Readable[bool]        { return s.loading }
func (s *Store) Err() observe.Readable[string]          { return s.err }

// Snapshot returns the current notes.
func (s *Store) Snapshot() []models.Note { return s.notes.Get() }

// FetchToday loads today's notes.
func (s *Store) FetchToday(ctx context.Context) observe.Outcome {
	return s.load(func() ([]models.Note, error) { return s.gw.TodayNotes(ctx) })
}

// FetchByDate loads the notes of date (YYYY-MM-DD).
func (s *Store) FetchByDate(ctx context.Context, date string) observe.Outcome {
	return s.load(func() ([]models.Note, error) { return s.gw.ListNotes(ctx, date) })
}

func (s *Store) load(fn func() ([]models.Note, error)) observe.Outcome {
	s.loading.Set(true)
	defer s.loading.Set(false)
	s.err.Set("")

	list, err := fn()
	if err != nil {
		s.err.Set(err.Error())
		return observe.Failed(err)
	}
	s.notes.Set(list)
	return observe.Outcome{}
}

// Create adds a note and prepends it to the current list.
func (s *Store) Create(ctx context.Context, in models.NoteCreate) (*models.Note, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)
	s.err.Set("")

	n, err := s.gw.CreateNote(ctx, in)
	if err != nil {
		s.err.Set(err.Error())
		return nil, err
	}
	s.notes.Update(func(current []models.Note) []models.Note {
		next := make([]models.Note, 0, len(current)+1)
		next = append(next, *n)
		return append(next, current...)
	})
	return n, nil
}

// UpdateNote replaces the local note with the backend's updated record.
func (s *Store) UpdateNote(ctx context.Context, id int64, patch models.NoteUpdate) (*models.Note, error) {
	n, err := s.gw.UpdateNote(ctx, id, patch)
	if err != nil {
		s.err.Set(err.Error())
		return nil, err
	}
	s.notes.Update(func(current []models.Note) []models.Note {
		next := make([]models.Note, len(current))
		for i, old := range current {
			if old.ID == id {
				next[i] = *n
			} else {
				next[i] = old
			}
		}
		return next
	})
	return n, nil
}

// Delete removes a note once the backend confirms.
func (s *Store) Delete(ctx context.Context, id int64) observe.Outcome {
	if err := s.gw.DeleteNote(ctx, id); err != nil {
		s.err.Set(err.Error())
		return observe.Failed(err)
	}
	s.notes.Update(func(current []models.Note) []models.Note {
		next := make([]models.Note, 0, len(current))
		for _, n := range current {
			if n.ID != id {
				next = append(next, n)
			}
		}
		return next
	})
	return observe.Outcome{}
}

// HistoryStore holds notes grouped by date.
type HistoryStore struct {
	gw      Gateway
	groups  *observe.Value[[]models.NotesByDate]
	loading *observe.Value[bool]
	err     *observe.Value[string]
}

// NewHistory creates an empty HistoryStore.
func NewHistory(gw Gateway) *HistoryStore {
	return &HistoryStore{
		gw:      gw,
		groups:  observe.NewValue[[]models.NotesByDate](nil),
		loading: observe.NewValue(false),
		err:     observe.NewValue(""),
	}
}

func (h *HistoryStore) Groups() observe.Readable[[]models.NotesByDate] { return h.groups }
func (h *HistoryStore) Loading() observe.Readable[bool]                { return h.loading }
func (h *HistoryStore) Err() observe.Readable[string]                  { return h.err }

// Fetch loads the groups between startDate and endDate; either may be "".
func (h *HistoryStore) Fetch(ctx context.Context, startDate, endDate string) observe.Outcome {
	h.loading.Set(true)
	defer h.loading.Set(false)
	h.err.Set("")

	groups, err := h.gw.NotesByDate(ctx, startDate, endDate)
	if err != nil {
		h.err.Set(err.Error())
		return observe.Failed(err)
	}
	h.groups.Set(groups)
	return observe.Outcome{}
}
