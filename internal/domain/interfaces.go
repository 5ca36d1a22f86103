package domain

import (
	"context"
	"time"
)

// ReportStore persists reports and reads back values for reconciliation.
// SaveReport must be atomic: the report row and all its value rows commit
// together or not at all.
type ReportStore interface {
	SaveReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, reportID string) (*Report, error)
	ListReports(ctx context.Context, subjectID string, limit, offset int) ([]*Report, error)
	FetchMetricValues(ctx context.Context, subjectID, metricName string) ([]StoredValue, error)
}

// TimelineEvent records that processing occurred for a subject.
type TimelineEvent struct {
	ID             int64          `json:"id"`
	SubjectID      string         `json:"subject_id"`
	EventType      string         `json:"event_type"`
	ReportID       string         `json:"report_id,omitempty"`
	ProcessingPath ProcessingPath `json:"processing_path"`
	Detail         string         `json:"detail,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TimelineStore is the audit trail for processing events.
type TimelineStore interface {
	Record(ctx context.Context, event *TimelineEvent) error
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*TimelineEvent, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// SeriesCache caches reconciled data points per (subject, metric) with a
// short TTL. A cache failure is never a pipeline failure.
type SeriesCache interface {
	Get(ctx context.Context, subjectID, metric string) ([]ChartDataPoint, bool)
	Set(ctx context.Context, subjectID, metric string, points []ChartDataPoint)
	Invalidate(ctx context.Context, subjectID string, metrics ...string)
}
