package domain

import (
	"time"
)

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v falls inside the range, inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// UnitConversion maps a recognized alternate unit to the standard unit.
// Aliases are compared after canonicalization (lowercased, whitespace and
// micro-sign variants folded).
type UnitConversion struct {
	Aliases []string `json:"aliases"`
	Factor  float64  `json:"factor"`
	Rule    string   `json:"rule"`
}

// MetricParameter describes one known clinical metric. The registry is
// loaded once at startup and never mutated, so parameters are safe to share
// by reference across any number of concurrent readers.
type MetricParameter struct {
	Name          string           `json:"name"`
	Aliases       []string         `json:"aliases"`
	StandardUnit  string           `json:"standard_unit"`
	NormalRange   Range            `json:"normal_range"`
	CriticalRange Range            `json:"critical_range"`
	Category      string           `json:"category"`
	Conversions   []UnitConversion `json:"conversions,omitempty"`
}

// RawObservation is a single extracted metric reading before normalization.
// Created by the extraction adapter and never mutated afterwards.
type RawObservation struct {
	SubjectID   string            `json:"subject_id"`
	MetricName  string            `json:"metric_name"`
	Value       *float64          `json:"value"`
	Unit        string            `json:"unit"`
	Source      ObservationSource `json:"source"`
	ReportID    string            `json:"report_id"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// NormalizedValue wraps a RawObservation with its standard-unit value,
// conversion provenance and a confidence level. Created once per
// observation, immutable thereafter.
type NormalizedValue struct {
	Observation      RawObservation      `json:"observation"`
	Value            float64             `json:"value"`
	Unit             string              `json:"unit"`
	ConversionFactor float64             `json:"conversion_factor"`
	ConversionRule   string              `json:"conversion_rule,omitempty"`
	Confidence       Confidence          `json:"confidence"`
	Method           NormalizationMethod `json:"method"`
	Warnings         []string            `json:"warnings,omitempty"`
}

// WasConverted reports whether a unit conversion was applied.
func (nv *NormalizedValue) WasConverted() bool {
	return nv.ConversionFactor != 1.0
}

// ValidationResult annotates a normalized value against clinical ranges.
// Validation never mutates the value.
type ValidationResult struct {
	Status         ValidationStatus `json:"status"`
	Notes          string           `json:"notes,omitempty"`
	WithinNormal   bool             `json:"within_normal_range"`
	WithinCritical bool             `json:"within_critical_range"`
}

// ReportValue is one persisted metric row of a report: the normalized value,
// its validation result and the original pre-conversion value for
// transparency.
type ReportValue struct {
	ReportID         string           `json:"report_id"`
	MetricName       string           `json:"metric_name"`
	StandardValue    float64          `json:"standard_value"`
	StandardUnit     string           `json:"standard_unit"`
	OriginalValue    *float64         `json:"original_value"`
	OriginalUnit     string           `json:"original_unit"`
	WasConverted     bool             `json:"was_converted"`
	ConversionFactor float64          `json:"conversion_factor"`
	ConversionRule   string           `json:"conversion_rule,omitempty"`
	Confidence       Confidence       `json:"confidence"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	ValidationNotes  string           `json:"validation_notes,omitempty"`
	Source           ObservationSource `json:"source"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ReportMeta carries caller-supplied report attributes.
type ReportMeta struct {
	ReportType string            `json:"report_type"`
	ReportDate time.Time         `json:"report_date"`
	Source     ObservationSource `json:"source"`
}

// Report is one atomically persisted batch of normalized values. Reports are
// append-only: corrections create a new report rather than mutating history.
type Report struct {
	ID           string         `json:"id"`
	SubjectID    string         `json:"subject_id"`
	ReportType   string         `json:"report_type"`
	ReportDate   time.Time      `json:"report_date"`
	QualityScore float64        `json:"quality_score"`
	Processing   ProcessingPath `json:"processing"`
	Values       []ReportValue  `json:"values"`
	Warnings     []string       `json:"warnings,omitempty"`
	RawPayload   string         `json:"raw_payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// StoredValue is a persisted report value joined with its report context,
// as read back by the reconciliation engine.
type StoredValue struct {
	ReportValue
	SubjectID  string    `json:"subject_id"`
	ReportDate time.Time `json:"report_date"`
}

// ChartDataPoint is the single reconciled observation for one subject,
// metric and calendar day.
type ChartDataPoint struct {
	Date           string     `json:"date"` // YYYY-MM-DD
	Value          float64    `json:"value"`
	Confidence     Confidence `json:"confidence"`
	SourceReportID string     `json:"source_report_id"`
	OriginalValue  *float64   `json:"original_value,omitempty"`
	OriginalUnit   string     `json:"original_unit,omitempty"`
}

// SeriesStatistics are derived over a date-ordered series.
type SeriesStatistics struct {
	Count   int            `json:"count"`
	Min     float64        `json:"min"`
	Max     float64        `json:"max"`
	Average float64        `json:"average"`
	Trend   TrendDirection `json:"trend"`
}

// DateGap marks two consecutive points further apart than the gap threshold.
type DateGap struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SeriesQuality assesses how trustworthy and complete a series is.
type SeriesQuality struct {
	Completeness float64   `json:"completeness"`
	Reliability  float64   `json:"reliability"`
	Gaps         []DateGap `json:"gaps"`
}

// ChartSeries is the read-model handed to chart consumers. It is derived on
// every read and never persisted as a source of truth.
type ChartSeries struct {
	Metric     string           `json:"metric"`
	Unit       string           `json:"unit"`
	Data       []ChartDataPoint `json:"data"`
	Statistics SeriesStatistics `json:"statistics"`
	Quality    SeriesQuality    `json:"quality"`
}

// ClinicalScore is a derived clinical score over latest reconciled values.
type ClinicalScore struct {
	Name       string             `json:"name"`
	Value      float64            `json:"value"`
	Inputs     map[string]float64 `json:"inputs"`
	ComputedAt time.Time          `json:"computed_at"`
}
