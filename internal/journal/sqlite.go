package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedwagon-io/multisensor/internal/lib/logger/sl"
	"github.com/speedwagon-io/multisensor/internal/model"
)

// MemoryPath keeps the journal in process memory only.
const MemoryPath = ":memory:"

var ErrPersistentPath = errors.New("journal must be in memory")

// Journal keeps a short history of publish attempts for diagnostics. It is
// never used to re-send anything.
type Journal interface {
	Record(ctx context.Context, attempt *model.PublishAttempt) error
	Recent(ctx context.Context, limit int) ([]*model.PublishAttempt, error)
	FailuresSince(ctx context.Context, since time.Time) (int64, error)
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

type SQLiteJournal struct {
	log *slog.Logger
	db  *sql.DB
}

func NewSQLiteJournal(log *slog.Logger, dbPath string) (*SQLiteJournal, error) {
	if !IsMemory(dbPath) {
		return nil, fmt.Errorf("%w: got %q", ErrPersistentPath, dbPath)
	}

	db, err := sql.Open("sqlite3", MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	j := &SQLiteJournal{
		log: log,
		db:  db,
	}

	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS publish_attempts (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			field TEXT NOT NULL,
			value REAL NOT NULL,
			payload TEXT,
			status TEXT NOT NULL,
			error TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_attempts_status ON publish_attempts(status);
		CREATE INDEX IF NOT EXISTS idx_attempts_created_at ON publish_attempts(created_at);
	`
	_, err := j.db.Exec(query)
	return err
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (j *SQLiteJournal) Record(ctx context.Context, a *model.PublishAttempt) error {
	query := `
		INSERT INTO publish_attempts (id, topic, field, value, payload, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	// NaN and infinities cannot be stored as REAL NOT NULL.
	value := a.Value
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}

	_, err := j.db.ExecContext(ctx, query,
		a.ID,
		a.Topic,
		a.Field,
		value,
		a.Payload,
		string(a.Status),
		a.Error,
		a.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	j.log.Debug("publish attempt recorded",
		slog.String("id", a.ID),
		slog.String("status", string(a.Status)),
	)
	return nil
}

func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*model.PublishAttempt, error) {
	query := `
		SELECT id, topic, field, value, payload, status, error, created_at
		FROM publish_attempts
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.PublishAttempt
	for rows.Next() {
		var (
			a                 model.PublishAttempt
			status, createdAt string
			payload, errText  sql.NullString
		)

		if err := rows.Scan(&a.ID, &a.Topic, &a.Field, &a.Value, &payload, &status, &errText, &createdAt); err != nil {
			j.log.Error("failed to scan row", sl.Err(err))
			continue
		}

		ts, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			j.log.Error("failed to parse timestamp", sl.Err(err))
			continue
		}

		a.Payload = payload.String
		a.Error = errText.String
		a.Status = model.AttemptStatus(status)
		a.Timestamp = ts
		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// FailuresSince counts failed and skipped attempts recorded at or after since.
func (j *SQLiteJournal) FailuresSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM publish_attempts WHERE status != ? AND created_at >= ?",
		string(model.StatusSent),
		since.UTC().Format(timeLayout),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return count, nil
}

func (j *SQLiteJournal) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)

	result, err := j.db.ExecContext(ctx, "DELETE FROM publish_attempts WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old attempts: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		j.log.Info("cleaned up old journal entries", slog.Int64("deleted", deleted))
	}

	return deleted, nil
}

func (j *SQLiteJournal) Count(ctx context.Context) (int64, error) {
	var count int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM publish_attempts").Scan(&count)
	return count, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// IsMemory reports whether path selects the in-memory journal.
func IsMemory(path string) bool {
	return path == "" || strings.EqualFold(path, MemoryPath)
}
