// Package domain contains core business entities and types for the medical
// value normalization and chart-series reconciliation pipeline.
//
// All enums are string-typed with exhaustive switches at every consumption
// site so that adding a new level is a compile-visible change.
package domain

// Confidence represents how much trust the system places in a normalized
// value. REJECT values are persisted for the audit trail but must never
// enter a reconciled chart series.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceReject Confidence = "reject"
)

// IsValid validates the confidence level.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceReject:
		return true
	default:
		return false
	}
}

// String returns the string representation of the confidence level.
func (c Confidence) String() string {
	return string(c)
}

// Weight returns the quality-score contribution of this confidence level.
// The report quality score is the mean of these weights across all values.
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.7
	case ConfidenceLow:
		return 0.4
	case ConfidenceReject:
		return 0.0
	default:
		return 0.0
	}
}

// CandidateScore returns the integer weight used when ranking same-day
// candidates during reconciliation.
func (c Confidence) CandidateScore() int {
	switch c {
	case ConfidenceHigh:
		return 4
	case ConfidenceMedium:
		return 3
	case ConfidenceLow:
		return 2
	case ConfidenceReject:
		return 1
	default:
		return 0
	}
}

// ValidationStatus classifies a normalized value against clinical ranges.
type ValidationStatus string

const (
	StatusValid      ValidationStatus = "valid"
	StatusSuspicious ValidationStatus = "suspicious"
	StatusError      ValidationStatus = "error"
)

// IsValid validates the validation status.
func (s ValidationStatus) IsValid() bool {
	switch s {
	case StatusValid, StatusSuspicious, StatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s ValidationStatus) String() string {
	return string(s)
}

// ObservationSource identifies where a raw observation came from.
type ObservationSource string

const (
	SourceAIExtraction ObservationSource = "ai_extraction"
	SourceManualEntry  ObservationSource = "manual_entry"
	SourceLegacy       ObservationSource = "legacy"
)

// IsValid validates the observation source.
func (s ObservationSource) IsValid() bool {
	switch s {
	case SourceAIExtraction, SourceManualEntry, SourceLegacy:
		return true
	default:
		return false
	}
}

// String returns the string representation of the source.
func (s ObservationSource) String() string {
	return string(s)
}

// ProcessingPath records which pipeline path persisted a report.
type ProcessingPath string

const (
	PathPrimary        ProcessingPath = "primary"
	PathLegacyFallback ProcessingPath = "legacy_fallback"
)

// String returns the string representation of the processing path.
func (p ProcessingPath) String() string {
	return string(p)
}

// NormalizationMethod tags which heuristic produced a normalized value.
type NormalizationMethod string

const (
	MethodExactUnit          NormalizationMethod = "exact_unit"
	MethodKnownConversion    NormalizationMethod = "known_conversion"
	MethodMagnitudeHeuristic NormalizationMethod = "magnitude_heuristic"
	MethodUnrecognizedUnit   NormalizationMethod = "unrecognized_unit"
	MethodMissingValue       NormalizationMethod = "missing_value"
)

// String returns the string representation of the method.
func (m NormalizationMethod) String() string {
	return string(m)
}

// TrendDirection classifies the movement of a chart series over time.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendUnknown    TrendDirection = "unknown"
)

// String returns the string representation of the trend.
func (t TrendDirection) String() string {
	return string(t)
}
