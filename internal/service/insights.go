package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
)

// ScoreFunc computes a clinical score from the latest reconciled values of
// its required metrics. Inputs are keyed by canonical metric name and are
// guaranteed present when called.
type ScoreFunc func(inputs map[string]float64) float64

// ScoreDefinition declares a derived clinical score: which metrics it needs
// and how to combine them.
type ScoreDefinition struct {
	Name     string
	Requires []string
	Compute  ScoreFunc
}

// InsightsEngine computes derived clinical scores over reconciled series.
// Missing inputs yield a typed InsufficientDataError naming exactly which
// metrics are absent, never a silent zero.
type InsightsEngine struct {
	series *SeriesBuilder
	scores map[string]ScoreDefinition
	log    *logrus.Logger
}

// NewInsightsEngine creates an insights engine with the built-in score set.
func NewInsightsEngine(series *SeriesBuilder, logger *logrus.Logger) *InsightsEngine {
	e := &InsightsEngine{
		series: series,
		scores: make(map[string]ScoreDefinition),
		log:    logger,
	}
	e.register(meldDefinition())
	return e
}

func (e *InsightsEngine) register(def ScoreDefinition) {
	e.scores[def.Name] = def
}

// ScoreNames lists the registered score names, sorted.
func (e *InsightsEngine) ScoreNames() []string {
	names := make([]string, 0, len(e.scores))
	for name := range e.scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputeScore evaluates one named score for a subject using the latest
// reconciled value of each required metric.
func (e *InsightsEngine) ComputeScore(ctx context.Context, subjectID, scoreName string) (*domain.ClinicalScore, error) {
	def, ok := e.scores[scoreName]
	if !ok {
		return nil, fmt.Errorf("score %q: %w", scoreName, domain.ErrNotFound)
	}

	inputs := make(map[string]float64, len(def.Requires))
	var missing []string
	for _, metric := range def.Requires {
		point, found, err := e.series.LatestValue(ctx, subjectID, metric)
		if err != nil {
			return nil, fmt.Errorf("resolving %s input %s: %w", def.Name, metric, err)
		}
		if !found {
			missing = append(missing, metric)
			continue
		}
		inputs[metric] = point.Value
	}

	if len(missing) > 0 {
		return nil, &domain.InsufficientDataError{Score: def.Name, Missing: missing}
	}

	score := &domain.ClinicalScore{
		Name:       def.Name,
		Value:      def.Compute(inputs),
		Inputs:     inputs,
		ComputedAt: time.Now().UTC(),
	}

	e.log.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"score":      def.Name,
		"value":      score.Value,
	}).Info("Computed clinical score")

	return score, nil
}

// meldDefinition is the MELD liver disease severity score:
//
//	10 * (0.957*ln(creatinine) + 0.378*ln(bilirubin) + 1.120*ln(INR)) + 6.43
//
// with each input floored at 1.0 before the logarithm, creatinine capped at
// 4.0, and the final score clamped to [6, 40].
func meldDefinition() ScoreDefinition {
	return ScoreDefinition{
		Name:     "MELD",
		Requires: []string{"Creatinine", "Total Bilirubin", "INR"},
		Compute: func(inputs map[string]float64) float64 {
			creatinine := math.Min(math.Max(inputs["Creatinine"], 1.0), 4.0)
			bilirubin := math.Max(inputs["Total Bilirubin"], 1.0)
			inr := math.Max(inputs["INR"], 1.0)

			raw := 10*(0.957*math.Log(creatinine)+0.378*math.Log(bilirubin)+1.120*math.Log(inr)) + 6.43
			return math.Min(math.Max(math.Round(raw), 6), 40)
		},
	}
}
