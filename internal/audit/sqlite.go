package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/labseries-server/internal/domain"
)

// SQLiteStore implements the timeline store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite timeline store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for concurrent readers during writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the timeline table and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS timeline_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		report_id TEXT DEFAULT '',
		processing_path TEXT NOT NULL,
		detail TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timeline_subject ON timeline_events(subject_id);
	CREATE INDEX IF NOT EXISTS idx_timeline_created_at ON timeline_events(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record appends one timeline event.
func (s *SQLiteStore) Record(ctx context.Context, event *domain.TimelineEvent) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO timeline_events (
			subject_id, event_type, report_id, processing_path, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.SubjectID,
		event.EventType,
		event.ReportID,
		string(event.ProcessingPath),
		event.Detail,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	event.ID = id

	return nil
}

// ListBySubject returns a subject's events, newest first, with pagination.
func (s *SQLiteStore) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*domain.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, event_type, report_id, processing_path, detail, created_at
		FROM timeline_events
		WHERE subject_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, subjectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.TimelineEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// Count returns the total number of timeline events.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timeline_events").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent scans a row into a TimelineEvent.
func scanEvent(s scanner) (*domain.TimelineEvent, error) {
	event := &domain.TimelineEvent{}
	var path string

	err := s.Scan(
		&event.ID, &event.SubjectID, &event.EventType,
		&event.ReportID, &path, &event.Detail, &event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.ProcessingPath = domain.ProcessingPath(path)
	return event, nil
}
