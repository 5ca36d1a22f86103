package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labseries-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := newMockStore(t)

	event := sampleEvent("subj-1")
	mock.ExpectQuery("INSERT INTO timeline_events").
		WithArgs(event.SubjectID, event.EventType, event.ReportID,
			string(event.ProcessingPath), event.Detail, event.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	err := store.Record(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, int64(7), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Record_Error(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO timeline_events").
		WillReturnError(errors.New("connection refused"))

	err := store.Record(context.Background(), sampleEvent("subj-1"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record event")
}

func TestPostgresStore_ListBySubject(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "subject_id", "event_type", "report_id", "processing_path", "detail", "created_at",
	}).
		AddRow(int64(2), "subj-1", "report_processed", "rep-2", "legacy_fallback", "malformed payload: invalid JSON", now).
		AddRow(int64(1), "subj-1", "report_processed", "rep-1", "primary", "processed 3 values, quality 0.90", now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM timeline_events").
		WithArgs("subj-1", 10, 0).
		WillReturnRows(rows)

	events, err := store.ListBySubject(context.Background(), "subj-1", 10, 0)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.PathLegacyFallback, events[0].ProcessingPath)
	assert.Equal(t, domain.PathPrimary, events[1].ProcessingPath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := store.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)

	assert.Error(t, err)
}
