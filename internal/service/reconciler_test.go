package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labseries-server/internal/domain"
	"github.com/labseries-server/internal/registry"
)

func storedALT(reportID string, day time.Time, value float64, confidence domain.Confidence, createdAt time.Time) *domain.Report {
	return &domain.Report{
		ID:         reportID,
		SubjectID:  "subj-1",
		ReportDate: day,
		CreatedAt:  createdAt,
		Values: []domain.ReportValue{{
			ReportID:      reportID,
			MetricName:    "ALT",
			StandardValue: value,
			StandardUnit:  "U/L",
			OriginalUnit:  "U/L",
			Confidence:    confidence,
			CreatedAt:     createdAt,
		}},
	}
}

func newTestReconciler(store domain.ReportStore) *Reconciler {
	return NewReconciler(registry.NewDefault(), store, nil, testLogger())
}

func TestReconcile_OnePointPerDay(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	store := &memStore{reports: []*domain.Report{
		storedALT("rep-a", day, 45, domain.ConfidenceHigh, created),
		storedALT("rep-b", day, 44, domain.ConfidenceLow, created.Add(time.Hour)),
		storedALT("rep-c", day.AddDate(0, 0, 1), 50, domain.ConfidenceHigh, created.AddDate(0, 0, 1)),
	}}

	points, param, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "ALT")

	require.NoError(t, err)
	assert.Equal(t, "ALT", param.Name)
	require.Len(t, points, 2, "two calendar days, two points")
	assert.Equal(t, "2026-03-10", points[0].Date)
	assert.Equal(t, 45.0, points[0].Value, "high confidence beats low")
	assert.Equal(t, "rep-a", points[0].SourceReportID)
	assert.Equal(t, "2026-03-11", points[1].Date)
}

func TestReconcile_RecencyBreaksScoreTies(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	early := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	late := early.Add(2 * time.Hour)
	store := &memStore{reports: []*domain.Report{
		storedALT("rep-a", day, 45, domain.ConfidenceHigh, early),
		storedALT("rep-b", day, 47, domain.ConfidenceHigh, late),
	}}

	points, _, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "ALT")

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 47.0, points[0].Value, "equal scores, more recent row wins")
	assert.Equal(t, "rep-b", points[0].SourceReportID)
}

func TestReconcile_ReportIDBreaksFullTies(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	store := &memStore{reports: []*domain.Report{
		storedALT("rep-b", day, 47, domain.ConfidenceHigh, created),
		storedALT("rep-a", day, 45, domain.ConfidenceHigh, created),
	}}

	points, _, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "ALT")

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "rep-a", points[0].SourceReportID, "lowest report ID on full tie")
}

func TestReconcile_RejectedValuesExcluded(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	created := day.Add(8 * time.Hour)
	store := &memStore{reports: []*domain.Report{
		storedALT("rep-a", day, 999999, domain.ConfidenceReject, created),
	}}

	points, _, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "ALT")

	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestReconcile_PlausibleBeatsImplausible(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	created := day.Add(8 * time.Hour)

	implausible := storedALT("rep-a", day, 8000, domain.ConfidenceMedium, created.Add(time.Hour))
	implausible.Values[0].OriginalUnit = ""
	plausible := storedALT("rep-b", day, 45, domain.ConfidenceMedium, created)
	plausible.Values[0].OriginalUnit = ""

	store := &memStore{reports: []*domain.Report{implausible, plausible}}

	points, _, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "ALT")

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 45.0, points[0].Value, "in-range value outscores out-of-range despite older timestamp")
}

func TestReconcile_AliasResolvesToCanonical(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := &memStore{reports: []*domain.Report{
		storedALT("rep-a", day, 45, domain.ConfidenceHigh, day.Add(8*time.Hour)),
	}}

	points, param, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "SGPT")

	require.NoError(t, err)
	assert.Equal(t, "ALT", param.Name)
	require.Len(t, points, 1)
}

func TestReconcile_UnknownMetric(t *testing.T) {
	_, _, err := newTestReconciler(&memStore{}).Reconcile(context.Background(), "subj-1", "Midichlorians")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownMetric)
}

func TestReconcile_FallsBackToCreatedAtDay(t *testing.T) {
	created := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)
	report := storedALT("rep-a", time.Time{}, 45, domain.ConfidenceHigh, created)
	store := &memStore{reports: []*domain.Report{report}}

	points, _, err := newTestReconciler(store).Reconcile(context.Background(), "subj-1", "ALT")

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-03-12", points[0].Date)
}

func TestReconcile_EndToEndThroughAggregator(t *testing.T) {
	store := &memStore{}
	agg := newTestAggregator(store, &memTimeline{})
	ctx := context.Background()

	days := []string{"2026-01-05", "2026-02-04", "2026-03-06"}
	values := []string{"42", "55", "61"}
	for i, d := range days {
		date, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		payload := `{"ALT": {"value": ` + values[i] + `, "unit": "U/L"}}`
		_, err = agg.ProcessReport(ctx, "subj-1", domain.ReportMeta{ReportDate: date, Source: domain.SourceAIExtraction}, []byte(payload))
		require.NoError(t, err)
	}

	points, _, err := newTestReconciler(store).Reconcile(ctx, "subj-1", "alt")

	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2026-01-05", points[0].Date)
	assert.Equal(t, 42.0, points[0].Value)
	assert.Equal(t, 61.0, points[2].Value)
	for _, p := range points {
		assert.Equal(t, domain.ConfidenceHigh, p.Confidence)
	}
}
