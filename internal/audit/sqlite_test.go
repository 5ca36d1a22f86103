package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labseries-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "timeline-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "timeline.db"))
	require.NoError(t, err)
	return store
}

func sampleEvent(subjectID string) *domain.TimelineEvent {
	return &domain.TimelineEvent{
		SubjectID:      subjectID,
		EventType:      "report_processed",
		ReportID:       "rep-1",
		ProcessingPath: domain.PathPrimary,
		Detail:         "processed 3 values, quality 0.90",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "timeline-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "timeline.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Record(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	event := sampleEvent("subj-1")

	err := store.Record(context.Background(), event)

	require.NoError(t, err)
	assert.NotZero(t, event.ID, "ID should be assigned")
}

func TestSQLiteStore_ListBySubject(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, sampleEvent("subj-1")))
	require.NoError(t, store.Record(ctx, sampleEvent("subj-1")))
	require.NoError(t, store.Record(ctx, sampleEvent("subj-2")))

	events, err := store.ListBySubject(ctx, "subj-1", 10, 0)

	require.NoError(t, err)
	assert.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, "subj-1", e.SubjectID)
		assert.Equal(t, domain.PathPrimary, e.ProcessingPath)
	}
}

func TestSQLiteStore_ListBySubject_Pagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, sampleEvent("subj-1")))
	}

	first, err := store.ListBySubject(ctx, "subj-1", 2, 0)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	rest, err := store.ListBySubject(ctx, "subj-1", 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestSQLiteStore_Count(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, sampleEvent("subj-1")))
	require.NoError(t, store.Record(ctx, sampleEvent("subj-2")))

	count, err := store.Count(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNewStore_SelectsBackend(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "timeline-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	store, err := NewStore(domain.AuditConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(tmpDir, "timeline.db"),
	})

	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &SQLiteStore{}, store)
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(domain.AuditConfig{Backend: "dynamodb"})

	assert.Error(t, err)
}
