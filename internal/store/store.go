package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/eyelife/internal/models"
)

// ErrNotFound is returned when a key or record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the local persistence interface for eyelife. It holds only
// client-side state; the backend owns habits, notes and durations.
type Store interface {
	// Key-value
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error

	// Active timer session
	SaveActiveTimer(ctx context.Context, t *models.ActiveTimer) error
	LoadActiveTimer(ctx context.Context) (*models.ActiveTimer, error)
	ClearActiveTimer(ctx context.Context) error

	// Run segment journal
	AppendSegment(ctx context.Context, seg *models.TimerSegment) error
	ListSegments(ctx context.Context, habitID int64, limit int) ([]*models.TimerSegment, error)
	DeleteSegmentsSince(ctx context.Context, habitID int64, since time.Time) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
