package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/eyelife/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers; the serve process and one-shot CLI
	// invocations share the file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Key-value ---

func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get value: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// DeleteValue removes key; deleting a missing key is not an error.
func (s *SQLiteStore) DeleteValue(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	return nil
}

// --- Active timer ---

func (s *SQLiteStore) SaveActiveTimer(ctx context.Context, t *models.ActiveTimer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timer_state (id, habit_id, started_at, paused_seconds, elapsed_seconds, paused, remote_open, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			habit_id = excluded.habit_id,
			started_at = excluded.started_at,
			paused_seconds = excluded.paused_seconds,
			elapsed_seconds = excluded.elapsed_seconds,
			paused = excluded.paused,
			remote_open = excluded.remote_open,
			updated_at = excluded.updated_at`,
		t.HabitID, t.StartedAt.UTC(), t.PausedSeconds, t.ElapsedSeconds, boolToInt(t.Paused), boolToInt(t.RemoteOpen), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save active timer: %w", err)
	}
	return nil
}

// LoadActiveTimer returns the persisted session, or ErrNotFound.
func (s *SQLiteStore) LoadActiveTimer(ctx context.Context) (*models.ActiveTimer, error) {
	t := &models.ActiveTimer{}
	err := s.db.QueryRowContext(ctx,
		`SELECT habit_id, started_at, paused_seconds, elapsed_seconds, paused, remote_open FROM timer_state WHERE id = 1`,
	).Scan(&t.HabitID, &t.StartedAt, &t.PausedSeconds, &t.ElapsedSeconds, &t.Paused, &t.RemoteOpen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active timer: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load active timer: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) ClearActiveTimer(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM timer_state`); err != nil {
		return fmt.Errorf("clear active timer: %w", err)
	}
	return nil
}

// --- Segments ---

func (s *SQLiteStore) AppendSegment(ctx context.Context, seg *models.TimerSegment) error {
	if seg.ID == "" {
		seg.ID = newULID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timer_segments (id, habit_id, started_at, ended_at, seconds, confirmed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		seg.ID, seg.HabitID, seg.StartedAt.UTC(), seg.EndedAt.UTC(), seg.Seconds, boolToInt(seg.Confirmed),
	)
	if err != nil {
		return fmt.Errorf("append segment: %w", err)
	}
	return nil
}

// ListSegments returns segments newest first. habitID 0 lists all habits;
// limit 0 means no limit.
func (s *SQLiteStore) ListSegments(ctx context.Context, habitID int64, limit int) ([]*models.TimerSegment, error) {
	query := `SELECT id, habit_id, started_at, ended_at, seconds, confirmed FROM timer_segments`
	var args []any
	if habitID != 0 {
		query += ` WHERE habit_id = ?`
		args = append(args, habitID)
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segs []*models.TimerSegment
	for rows.Next() {
		seg := &models.TimerSegment{}
		if err := rows.Scan(&seg.ID, &seg.HabitID, &seg.StartedAt, &seg.EndedAt, &seg.Seconds, &seg.Confirmed); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// DeleteSegmentsSince removes a habit's segments that started at or after
// since and returns the number removed.
func (s *SQLiteStore) DeleteSegmentsSince(ctx context.Context, habitID int64, since time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM timer_segments WHERE habit_id = ? AND started_at >= ?`,
		habitID, since.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete segments: %w", err)
	}
	return res.RowsAffected()
}
