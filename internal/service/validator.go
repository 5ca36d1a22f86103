package service

import (
	"fmt"
	"strings"

	"github.com/labseries-server/internal/domain"
)

// Validate checks a normalized value against the parameter's clinical
// ranges and produces a status annotation. It is a pure function and never
// mutates the value: out-of-range readings are annotated, not corrected.
func Validate(nv domain.NormalizedValue, param *domain.MetricParameter) domain.ValidationResult {
	withinNormal := param.NormalRange.Contains(nv.Value)
	withinCritical := param.CriticalRange.Contains(nv.Value)

	var notes []string
	var status domain.ValidationStatus

	switch {
	case nv.Confidence == domain.ConfidenceReject:
		status = domain.StatusError
		notes = append(notes, "value rejected during normalization")

	case !withinCritical:
		switch nv.Confidence {
		case domain.ConfidenceLow:
			status = domain.StatusError
			notes = append(notes, fmt.Sprintf("value %g %s is outside the plausible range [%g, %g] with low confidence",
				nv.Value, nv.Unit, param.CriticalRange.Min, param.CriticalRange.Max))
		case domain.ConfidenceHigh, domain.ConfidenceMedium:
			status = domain.StatusSuspicious
			notes = append(notes, fmt.Sprintf("value %g %s is outside the plausible range [%g, %g]",
				nv.Value, nv.Unit, param.CriticalRange.Min, param.CriticalRange.Max))
		default:
			status = domain.StatusError
		}

	default:
		status = domain.StatusValid
		if !withinNormal {
			if nv.Value < param.NormalRange.Min {
				notes = append(notes, fmt.Sprintf("below normal range (%g-%g %s)",
					param.NormalRange.Min, param.NormalRange.Max, param.StandardUnit))
			} else {
				notes = append(notes, fmt.Sprintf("above normal range (%g-%g %s)",
					param.NormalRange.Min, param.NormalRange.Max, param.StandardUnit))
			}
		}
	}

	if nv.Confidence == domain.ConfidenceLow && status != domain.StatusError {
		notes = append(notes, "low confidence, please verify")
	}

	return domain.ValidationResult{
		Status:         status,
		Notes:          strings.Join(notes, "; "),
		WithinNormal:   withinNormal,
		WithinCritical: withinCritical,
	}
}
