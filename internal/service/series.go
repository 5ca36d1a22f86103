package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
)

// SeriesBuilder turns reconciled points into the chart read-model with
// statistics, trend and a quality assessment. Everything here is derived on
// read; nothing is persisted.
type SeriesBuilder struct {
	reconciler *Reconciler
	cfg        domain.ReconcileConfig
	log        *logrus.Logger
}

// NewSeriesBuilder creates a new chart series builder.
func NewSeriesBuilder(reconciler *Reconciler, cfg domain.ReconcileConfig, logger *logrus.Logger) *SeriesBuilder {
	return &SeriesBuilder{reconciler: reconciler, cfg: cfg, log: logger}
}

// BuildSeries returns the full chart series for one subject and metric.
// An empty series is a valid result with zeroed statistics and unknown
// trend, not an error.
func (b *SeriesBuilder) BuildSeries(ctx context.Context, subjectID, metricName string) (*domain.ChartSeries, error) {
	points, param, err := b.reconciler.Reconcile(ctx, subjectID, metricName)
	if err != nil {
		return nil, err
	}

	series := &domain.ChartSeries{
		Metric:     param.Name,
		Unit:       param.StandardUnit,
		Data:       points,
		Statistics: computeStatistics(points),
		Quality:    b.assessQuality(points),
	}
	return series, nil
}

// LatestValue returns the most recent reconciled point for a metric, or
// false when the subject has no usable values for it.
func (b *SeriesBuilder) LatestValue(ctx context.Context, subjectID, metricName string) (domain.ChartDataPoint, bool, error) {
	points, _, err := b.reconciler.Reconcile(ctx, subjectID, metricName)
	if err != nil {
		return domain.ChartDataPoint{}, false, err
	}
	if len(points) == 0 {
		return domain.ChartDataPoint{}, false, nil
	}
	return points[len(points)-1], true, nil
}

func computeStatistics(points []domain.ChartDataPoint) domain.SeriesStatistics {
	stats := domain.SeriesStatistics{Count: len(points), Trend: domain.TrendUnknown}
	if len(points) == 0 {
		return stats
	}

	stats.Min = points[0].Value
	stats.Max = points[0].Value
	var sum float64
	for _, p := range points {
		if p.Value < stats.Min {
			stats.Min = p.Value
		}
		if p.Value > stats.Max {
			stats.Max = p.Value
		}
		sum += p.Value
	}
	stats.Average = sum / float64(len(points))
	stats.Trend = computeTrend(points)
	return stats
}

// computeTrend compares the mean of the earlier half against the later half.
// Fewer than four points cannot distinguish signal from noise, so the trend
// stays unknown.
func computeTrend(points []domain.ChartDataPoint) domain.TrendDirection {
	if len(points) < 4 {
		return domain.TrendUnknown
	}

	mid := len(points) / 2
	firstMean := meanOf(points[:mid])
	secondMean := meanOf(points[mid:])

	if firstMean == 0 {
		if secondMean == 0 {
			return domain.TrendStable
		}
		if secondMean > 0 {
			return domain.TrendIncreasing
		}
		return domain.TrendDecreasing
	}

	change := (secondMean - firstMean) / firstMean
	switch {
	case change > 0.10:
		return domain.TrendIncreasing
	case change < -0.10:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func meanOf(points []domain.ChartDataPoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

// assessQuality derives completeness against the expected sampling cadence,
// mean confidence reliability and the list of gaps over the threshold.
func (b *SeriesBuilder) assessQuality(points []domain.ChartDataPoint) domain.SeriesQuality {
	quality := domain.SeriesQuality{Gaps: []domain.DateGap{}}
	if len(points) == 0 {
		return quality
	}

	var weightSum float64
	for _, p := range points {
		weightSum += p.Confidence.Weight()
	}
	quality.Reliability = weightSum / float64(len(points))

	if len(points) == 1 {
		quality.Completeness = 1.0
		return quality
	}

	first := mustParseDay(points[0].Date)
	last := mustParseDay(points[len(points)-1].Date)
	spanDays := last.Sub(first).Hours() / 24

	cadence := float64(b.cfg.ExpectedCadenceDays)
	if cadence <= 0 {
		cadence = 30
	}
	expected := spanDays/cadence + 1
	quality.Completeness = float64(len(points)) / expected
	if quality.Completeness > 1.0 {
		quality.Completeness = 1.0
	}

	threshold := b.cfg.GapThresholdDays
	if threshold <= 0 {
		threshold = 90
	}
	for i := 1; i < len(points); i++ {
		prev := mustParseDay(points[i-1].Date)
		cur := mustParseDay(points[i].Date)
		if cur.Sub(prev).Hours()/24 > float64(threshold) {
			quality.Gaps = append(quality.Gaps, domain.DateGap{
				Start: points[i-1].Date,
				End:   points[i].Date,
			})
		}
	}
	return quality
}

// mustParseDay parses a YYYY-MM-DD date produced by the reconciler. The
// reconciler only emits Format("2006-01-02") output, so parsing cannot fail
// on well-formed points; a zero time is returned for anything else.
func mustParseDay(day string) time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}
	}
	return t
}
