package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/labseries-server/internal/domain"
)

// PostgresStore implements the timeline store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL timeline store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL timeline store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Record appends one timeline event.
func (s *PostgresStore) Record(ctx context.Context, event *domain.TimelineEvent) error {
	query := `
		INSERT INTO timeline_events (
			subject_id, event_type, report_id, processing_path, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		event.SubjectID,
		event.EventType,
		event.ReportID,
		string(event.ProcessingPath),
		event.Detail,
		event.CreatedAt,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListBySubject returns a subject's events, newest first, with pagination.
func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*domain.TimelineEvent, error) {
	query := `
		SELECT id, subject_id, event_type, report_id, processing_path, detail, created_at
		FROM timeline_events
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, subjectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var result []*domain.TimelineEvent
	for rows.Next() {
		event := &domain.TimelineEvent{}
		var path string

		err := rows.Scan(
			&event.ID, &event.SubjectID, &event.EventType,
			&event.ReportID, &path, &event.Detail, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		event.ProcessingPath = domain.ProcessingPath(path)
		result = append(result, event)
	}

	return result, rows.Err()
}

// Count returns the total number of timeline events.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timeline_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
