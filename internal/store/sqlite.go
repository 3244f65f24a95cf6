package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/focusproof/internal/model"
)

// ErrNotFound is returned by GetValue when the key does not exist.
var ErrNotFound = errors.New("not found")

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// taskRow mirrors the tasks table.
type taskRow struct {
	ID              string     `db:"id"`
	Position        int        `db:"position"`
	Title           string     `db:"title"`
	Description     string     `db:"description"`
	DurationMinutes int        `db:"duration_minutes"`
	Status          string     `db:"status"`
	ScheduledDate   *string    `db:"scheduled_date"`
	Notified        bool       `db:"notified"`
	StartTime       *time.Time `db:"start_time"`
	ProofImageURL   *string    `db:"proof_image_url"`
	PointsEarned    *int       `db:"points_earned"`
	AIFeedback      *string    `db:"ai_feedback"`
	CreatedAt       time.Time  `db:"created_at"`
}

// LoadTasks returns the task collection in stored order (newest first).
func (s *SQLiteStore) LoadTasks(ctx context.Context) ([]model.Task, error) {
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM tasks ORDER BY position"); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r taskRow) toTask() (model.Task, error) {
	t := model.Task{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		DurationMinutes: r.DurationMinutes,
		Status:          model.Status(r.Status),
		Notified:        r.Notified,
		ProofImageURL:   r.ProofImageURL,
		PointsEarned:    r.PointsEarned,
		AIFeedback:      r.AIFeedback,
		CreatedAt:       r.CreatedAt,
	}
	if r.StartTime != nil {
		st := *r.StartTime
		t.StartTime = &st
	}
	if r.ScheduledDate != nil && *r.ScheduledDate != "" {
		d, err := model.ParseDate(*r.ScheduledDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
		}
		t.ScheduledDate = &d
	}
	return t, nil
}

// SaveSnapshot writes tasks and stats in a single transaction.
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	tasks []model.Task,
	stats model.UserStats,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceTasks(ctx, tx, tasks); err != nil {
		return err
	}
	if err := upsertStats(ctx, tx, stats); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceTasks(ctx context.Context, tx *sqlx.Tx, tasks []model.Task) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	const query = `
		INSERT INTO tasks (
			id, position, title, description, duration_minutes,
			status, scheduled_date, notified, start_time,
			proof_image_url, points_earned, ai_feedback, created_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		var scheduled *string
		if t.ScheduledDate != nil {
			d := t.ScheduledDate.String()
			scheduled = &d
		}
		var start *time.Time
		if t.StartTime != nil {
			st := t.StartTime.UTC()
			start = &st
		}

		_, err = stmt.ExecContext(ctx,
			t.ID, i, t.Title, t.Description, t.DurationMinutes,
			string(t.Status), scheduled, boolToInt(t.Notified), start,
			t.ProofImageURL, t.PointsEarned, t.AIFeedback, t.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting task %s: %w", t.ID, err)
		}
	}
	return nil
}

// LoadStats returns the stats record, or zero stats when none was saved.
func (s *SQLiteStore) LoadStats(ctx context.Context) (model.UserStats, error) {
	var stats model.UserStats
	err := s.db.QueryRowxContext(ctx,
		"SELECT points, completed_count, failed_count FROM user_stats WHERE id = 1",
	).Scan(&stats.Points, &stats.CompletedCount, &stats.FailedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserStats{}, nil
	}
	if err != nil {
		return model.UserStats{}, fmt.Errorf("reading stats: %w", err)
	}
	return stats, nil
}

func upsertStats(ctx context.Context, tx *sqlx.Tx, stats model.UserStats) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_stats (
			id, points, completed_count, failed_count, updated_at
		) VALUES (1, ?, ?, ?, ?)`,
		stats.Points, stats.CompletedCount, stats.FailedCount, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving stats: %w", err)
	}
	return nil
}

// CreateNotification inserts a reminder log record.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	n model.Notification,
) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, task_id, for_date, title, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.TaskID, n.ForDate.String(), n.Title, n.Message, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

// GetNotifications returns the most recent reminder records, newest first.
// A non-positive limit returns all records.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	limit int,
) ([]model.Notification, error) {
	query := "SELECT * FROM notifications ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// GetValue returns the value stored under key, or ErrNotFound.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting value %q: %w", key, err)
	}
	return value, nil
}

// SetValue stores value under key.
func (s *SQLiteStore) SetValue(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting value %q: %w", key, err)
	}
	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		forDate   string
		createdAt time.Time
	)

	err := rows.Scan(
		&n.ID, &n.TaskID, &forDate, &n.Title, &n.Message, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	d, err := model.ParseDate(forDate)
	if err != nil {
		return model.Notification{}, fmt.Errorf("notification %s: %w", n.ID, err)
	}
	n.ForDate = d
	n.CreatedAt = createdAt

	return n, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
