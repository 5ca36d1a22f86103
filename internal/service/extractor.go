package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
)

// Extractor maps heterogeneous upstream payload shapes into a uniform list
// of raw observations. Shapes are matched in a fixed priority order:
//
//	B: [{name, value, unit, category?}, ...]
//	C: {"0": {name, value, unit}, "1": ...}   (legacy stringified-index bug)
//	A: {metricName: {value, unit} | null, ...}
//
// Unrecognized entries produce warnings, never a crash. Only a payload that
// cannot be parsed at all yields a MalformedPayloadError.
type Extractor struct {
	log *logrus.Logger
}

// NewExtractor creates a new extraction adapter.
func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{log: logger}
}

// ExtractionResult is the adapter's output: the observations it recognized
// plus structured warnings for everything it had to skip.
type ExtractionResult struct {
	Observations []domain.RawObservation
	Warnings     []string
}

// Adapt parses a payload into raw observations for the given report.
func (e *Extractor) Adapt(payload []byte, subjectID, reportID string, source domain.ObservationSource, extractedAt time.Time) (*ExtractionResult, error) {
	if len(payload) == 0 {
		return nil, &domain.MalformedPayloadError{Reason: "empty payload"}
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, &domain.MalformedPayloadError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	res := &ExtractionResult{}
	base := domain.RawObservation{
		SubjectID:   subjectID,
		ReportID:    reportID,
		Source:      source,
		ExtractedAt: extractedAt,
	}

	switch v := decoded.(type) {
	case []any:
		e.adaptRecordList(res, base, v)
	case map[string]any:
		if isIndexKeyed(v) {
			e.adaptIndexKeyed(res, base, v)
		} else {
			e.adaptNameKeyed(res, base, v)
		}
	default:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("unrecognized payload shape %T, no observations extracted", decoded))
	}

	e.log.WithFields(logrus.Fields{
		"subject_id":   subjectID,
		"report_id":    reportID,
		"observations": len(res.Observations),
		"warnings":     len(res.Warnings),
	}).Debug("Adapted extraction payload")

	return res, nil
}

// adaptRecordList handles shape B: an array of named records.
func (e *Extractor) adaptRecordList(res *ExtractionResult, base domain.RawObservation, records []any) {
	for i, rec := range records {
		entry, ok := rec.(map[string]any)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("entry %d is not an object, skipped", i))
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("entry %d has no name, skipped", i))
			continue
		}
		res.Observations = append(res.Observations, observationFromEntry(base, name, entry))
	}
}

// adaptIndexKeyed handles shape C: an object whose keys are stringified
// array indices, a known upstream serialization bug. Each entry's own name
// field is the real metric identifier, never the numeric key. Keys are
// walked in numeric order so output is deterministic.
func (e *Extractor) adaptIndexKeyed(res *ExtractionResult, base domain.RawObservation, m map[string]any) {
	keys := make([]int, 0, len(m))
	for k := range m {
		idx, err := strconv.Atoi(k)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("mixed key %q in index-keyed payload, skipped", k))
			continue
		}
		keys = append(keys, idx)
	}
	sort.Ints(keys)

	for _, idx := range keys {
		entry, ok := m[strconv.Itoa(idx)].(map[string]any)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("index %d is not an object, skipped", idx))
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("index %d has no name field, skipped", idx))
			continue
		}
		res.Observations = append(res.Observations, observationFromEntry(base, name, entry))
	}
}

// adaptNameKeyed handles shape A: a mapping from metric name to
// {value, unit} objects. Keys are walked in sorted order so output is
// deterministic.
func (e *Extractor) adaptNameKeyed(res *ExtractionResult, base domain.RawObservation, m map[string]any) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := m[name]
		if raw == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("metric %q has null entry, skipped", name))
			continue
		}
		entry, ok := raw.(map[string]any)
		if !ok {
			// Bare numbers are tolerated as value-only entries.
			if num, isNum := toFloat(raw); isNum {
				obs := base
				obs.MetricName = name
				obs.Value = &num
				res.Observations = append(res.Observations, obs)
				continue
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("metric %q has unrecognized entry shape, skipped", name))
			continue
		}
		res.Observations = append(res.Observations, observationFromEntry(base, name, entry))
	}
}

// observationFromEntry builds an observation from one {value, unit} entry.
// A missing or unparseable value yields a nil Value, which the normalizer
// turns into a reject-confidence result rather than an error.
func observationFromEntry(base domain.RawObservation, name string, entry map[string]any) domain.RawObservation {
	obs := base
	obs.MetricName = name
	if v, ok := toFloat(entry["value"]); ok {
		obs.Value = &v
	}
	if u, ok := entry["unit"].(string); ok {
		obs.Unit = u
	}
	return obs
}

// isIndexKeyed detects the legacy numeric-key bug pattern: every key is a
// stringified integer and at least one entry carries its own name field.
func isIndexKeyed(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	hasName := false
	for k, v := range m {
		if _, err := strconv.Atoi(k); err != nil {
			return false
		}
		if entry, ok := v.(map[string]any); ok {
			if _, ok := entry["name"].(string); ok {
				hasName = true
			}
		}
	}
	return hasName
}

// toFloat coerces a decoded JSON value to float64. String numbers are
// tolerated because AI extraction frequently emits them.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
