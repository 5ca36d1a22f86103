package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
	"github.com/labseries-server/internal/registry"
)

// Aggregator runs the write path: adapt, normalize, validate and persist a
// submitted batch as one atomic report, emitting a timeline event for the
// audit trail. When the primary path cannot parse the payload at all it
// explicitly invokes the legacy fallback persist so the submission is never
// lost.
type Aggregator struct {
	registry   *registry.Registry
	normalizer *Normalizer
	extractor  *Extractor
	store      domain.ReportStore
	timeline   domain.TimelineStore
	cache      domain.SeriesCache
	log        *logrus.Logger
}

// NewAggregator creates a new report aggregator. The timeline store and
// series cache are optional.
func NewAggregator(
	reg *registry.Registry,
	normalizer *Normalizer,
	extractor *Extractor,
	store domain.ReportStore,
	timeline domain.TimelineStore,
	cache domain.SeriesCache,
	logger *logrus.Logger,
) *Aggregator {
	return &Aggregator{
		registry:   reg,
		normalizer: normalizer,
		extractor:  extractor,
		store:      store,
		timeline:   timeline,
		cache:      cache,
		log:        logger,
	}
}

// ProcessReport adapts and persists one submitted payload. Normalization
// and validation problems are recovered into per-value annotations; only
// persistence failures surface as errors to the caller.
func (a *Aggregator) ProcessReport(ctx context.Context, subjectID string, meta domain.ReportMeta, payload []byte) (*domain.Report, error) {
	reportID := uuid.New().String()
	now := time.Now().UTC()

	result, err := a.extractor.Adapt(payload, subjectID, reportID, meta.Source, now)
	if err != nil {
		var malformed *domain.MalformedPayloadError
		if errors.As(err, &malformed) {
			return a.persistLegacyFallback(ctx, subjectID, reportID, meta, payload, malformed, now)
		}
		return nil, err
	}

	report := &domain.Report{
		ID:         reportID,
		SubjectID:  subjectID,
		ReportType: meta.ReportType,
		ReportDate: meta.ReportDate,
		Processing: domain.PathPrimary,
		Warnings:   result.Warnings,
		CreatedAt:  now,
	}

	touched := make(map[string]struct{})
	for _, obs := range result.Observations {
		row := a.processObservation(obs, now)
		report.Values = append(report.Values, row)
		touched[row.MetricName] = struct{}{}
	}
	report.QualityScore = qualityScore(report.Values)

	if err := a.store.SaveReport(ctx, report); err != nil {
		a.log.WithFields(logrus.Fields{
			"subject_id": subjectID,
			"report_id":  reportID,
		}).WithError(err).Error("Failed to persist report")
		return nil, fmt.Errorf("saving report: %w", err)
	}

	a.recordTimeline(ctx, subjectID, reportID, domain.PathPrimary,
		fmt.Sprintf("processed %d values, quality %.2f", len(report.Values), report.QualityScore))
	a.invalidateSeries(ctx, subjectID, touched)

	a.log.WithFields(logrus.Fields{
		"subject_id":    subjectID,
		"report_id":     reportID,
		"values":        len(report.Values),
		"quality_score": report.QualityScore,
		"processing":    report.Processing,
	}).Info("Report processed")

	return report, nil
}

// processObservation normalizes and validates a single observation into a
// persistable value row. Unknown metrics are persisted unprocessed with an
// error status so they remain visible in the audit trail without ever
// entering a chart series.
func (a *Aggregator) processObservation(obs domain.RawObservation, now time.Time) domain.ReportValue {
	param, ok := a.registry.Lookup(obs.MetricName)
	if !ok {
		a.log.WithFields(logrus.Fields{
			"metric":    obs.MetricName,
			"report_id": obs.ReportID,
		}).Warn("Unknown metric reported but not processed")

		row := domain.ReportValue{
			ReportID:         obs.ReportID,
			MetricName:       obs.MetricName,
			OriginalValue:    obs.Value,
			OriginalUnit:     obs.Unit,
			ConversionFactor: 1.0,
			Confidence:       domain.ConfidenceReject,
			ValidationStatus: domain.StatusError,
			ValidationNotes:  "unknown metric: not in parameter registry",
			Source:           obs.Source,
			CreatedAt:        now,
		}
		if obs.Value != nil {
			row.StandardValue = *obs.Value
		}
		row.StandardUnit = obs.Unit
		return row
	}

	nv := a.normalizer.Normalize(param, obs)
	vr := Validate(nv, param)

	return domain.ReportValue{
		ReportID:         obs.ReportID,
		MetricName:       param.Name,
		StandardValue:    nv.Value,
		StandardUnit:     nv.Unit,
		OriginalValue:    obs.Value,
		OriginalUnit:     obs.Unit,
		WasConverted:     nv.WasConverted(),
		ConversionFactor: nv.ConversionFactor,
		ConversionRule:   nv.ConversionRule,
		Confidence:       nv.Confidence,
		ValidationStatus: vr.Status,
		ValidationNotes:  vr.Notes,
		Source:           obs.Source,
		CreatedAt:        now,
	}
}

// persistLegacyFallback is the explicit raw-persist path for payloads the
// adapter could not parse. The submission is stored as-is, tagged
// legacy_fallback, and the fallback is logged and recorded on the timeline.
func (a *Aggregator) persistLegacyFallback(ctx context.Context, subjectID, reportID string, meta domain.ReportMeta, payload []byte, cause *domain.MalformedPayloadError, now time.Time) (*domain.Report, error) {
	a.log.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"report_id":  reportID,
		"reason":     cause.Reason,
	}).Warn("Primary processing failed, falling back to legacy persist")

	report := &domain.Report{
		ID:         reportID,
		SubjectID:  subjectID,
		ReportType: meta.ReportType,
		ReportDate: meta.ReportDate,
		Processing: domain.PathLegacyFallback,
		Warnings:   []string{cause.Error()},
		RawPayload: string(payload),
		CreatedAt:  now,
	}

	if err := a.store.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("saving fallback report: %w", err)
	}

	a.recordTimeline(ctx, subjectID, reportID, domain.PathLegacyFallback, cause.Reason)
	return report, nil
}

// recordTimeline emits the audit event for a processed report. Audit
// failures are logged, never fatal to the submission.
func (a *Aggregator) recordTimeline(ctx context.Context, subjectID, reportID string, path domain.ProcessingPath, detail string) {
	if a.timeline == nil {
		return
	}
	event := &domain.TimelineEvent{
		SubjectID:      subjectID,
		EventType:      "report_processed",
		ReportID:       reportID,
		ProcessingPath: path,
		Detail:         detail,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.timeline.Record(ctx, event); err != nil {
		a.log.WithError(err).WithField("report_id", reportID).Warn("Failed to record timeline event")
	}
}

// invalidateSeries drops cached series for every metric touched by a write.
func (a *Aggregator) invalidateSeries(ctx context.Context, subjectID string, metrics map[string]struct{}) {
	if a.cache == nil || len(metrics) == 0 {
		return
	}
	names := make([]string, 0, len(metrics))
	for m := range metrics {
		names = append(names, m)
	}
	a.cache.Invalidate(ctx, subjectID, names...)
}

// qualityScore is the mean of per-value confidence weights, 0 for an empty
// report.
func qualityScore(values []domain.ReportValue) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v.Confidence.Weight()
	}
	return sum / float64(len(values))
}
