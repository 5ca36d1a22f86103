package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
	"github.com/labseries-server/internal/registry"
)

// Reconciler collapses all stored values for one subject and metric into a
// chart-ready series with exactly one point per calendar day. Selection is
// deterministic: the same stored rows always reconcile to the same series,
// which is why the cache can be dropped and rebuilt at any time.
type Reconciler struct {
	registry *registry.Registry
	store    domain.ReportStore
	cache    domain.SeriesCache
	log      *logrus.Logger
}

// NewReconciler creates a new reconciliation engine. The cache is optional.
func NewReconciler(reg *registry.Registry, store domain.ReportStore, cache domain.SeriesCache, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		registry: reg,
		store:    store,
		cache:    cache,
		log:      logger,
	}
}

// Reconcile returns the date-ascending reconciled points for one subject and
// metric. The metric name may be any registered alias; the result always
// carries the canonical name. An unregistered metric is an error, not an
// empty series.
func (r *Reconciler) Reconcile(ctx context.Context, subjectID, metricName string) ([]domain.ChartDataPoint, *domain.MetricParameter, error) {
	param, ok := r.registry.Lookup(metricName)
	if !ok {
		return nil, nil, fmt.Errorf("reconciling %q: %w", metricName, domain.ErrUnknownMetric)
	}

	if r.cache != nil {
		if points, hit := r.cache.Get(ctx, subjectID, param.Name); hit {
			return points, param, nil
		}
	}

	stored, err := r.store.FetchMetricValues(ctx, subjectID, param.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching values for %s: %w", param.Name, err)
	}

	points := reconcilePoints(param, stored)

	if r.cache != nil {
		r.cache.Set(ctx, subjectID, param.Name, points)
	}

	r.log.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"metric":     param.Name,
		"stored":     len(stored),
		"points":     len(points),
	}).Debug("Reconciled metric series")

	return points, param, nil
}

// reconcilePoints groups candidates by calendar day, scores each group and
// keeps the single best candidate per day. Rejected values never become
// points.
func reconcilePoints(param *domain.MetricParameter, stored []domain.StoredValue) []domain.ChartDataPoint {
	byDay := make(map[string][]domain.StoredValue)
	for _, sv := range stored {
		if sv.Confidence == domain.ConfidenceReject {
			continue
		}
		byDay[observationDay(sv)] = append(byDay[observationDay(sv)], sv)
	}

	points := make([]domain.ChartDataPoint, 0, len(byDay))
	for day, candidates := range byDay {
		best := selectBest(param, candidates)
		points = append(points, domain.ChartDataPoint{
			Date:           day,
			Value:          best.StandardValue,
			Confidence:     best.Confidence,
			SourceReportID: best.ReportID,
			OriginalValue:  best.OriginalValue,
			OriginalUnit:   best.OriginalUnit,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// observationDay is the calendar day a value is charted under: the report
// date when present, otherwise the row's creation time.
func observationDay(sv domain.StoredValue) string {
	if !sv.ReportDate.IsZero() {
		return sv.ReportDate.Format("2006-01-02")
	}
	return sv.CreatedAt.Format("2006-01-02")
}

// selectBest ranks same-day candidates. Score is additive over independent
// signals; recency and report ID are strict tiebreaks only and are never
// mixed into the score.
func selectBest(param *domain.MetricParameter, candidates []domain.StoredValue) domain.StoredValue {
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := candidateScore(param, candidates[i]), candidateScore(param, candidates[j])
		if si != sj {
			return si > sj
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ReportID < candidates[j].ReportID
	})
	return candidates[0]
}

// candidateScore sums the confidence weight, a plausibility bonus and an
// exact-unit bonus.
func candidateScore(param *domain.MetricParameter, sv domain.StoredValue) int {
	score := sv.Confidence.CandidateScore()
	if param.CriticalRange.Contains(sv.StandardValue) {
		score += 2
	}
	if !sv.WasConverted && sv.OriginalUnit != "" && canonicalUnit(sv.OriginalUnit) == canonicalUnit(param.StandardUnit) {
		score++
	}
	return score
}
