package models

// Note is a dated free-text note.
type Note struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Date      string    `json:"date"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// NoteCreate is the payload for creating a note.
type NoteCreate struct {
	Content string `json:"content"`
	Date    string `json:"date"`
}

// NoteUpdate is a partial note update.
type NoteUpdate struct {
	Content *string `json:"content,omitempty"`
	Date    *string `json:"date,omitempty"`
}

// NotesByDate groups notes under one calendar date.
type NotesByDate struct {
	Date  string `json:"date"`
	Notes []Note `json:"notes"`
}
