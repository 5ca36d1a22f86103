// Package service implements the value normalization, validation and
// reconciliation pipeline over the parameter registry.
package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/labseries-server/internal/domain"
)

// Normalizer converts raw (value, unit) pairs into standard-unit values
// with a confidence level and conversion provenance. Normalization never
// fails: every input produces a NormalizedValue, worst case with reject
// confidence and explanatory warnings.
type Normalizer struct {
	log *logrus.Logger
}

// NewNormalizer creates a new unit normalizer.
func NewNormalizer(logger *logrus.Logger) *Normalizer {
	return &Normalizer{log: logger}
}

// implausibilityFactor is how far beyond the critical range a value must
// fall, multiplicatively, before it is rejected outright rather than merely
// flagged. Two orders of magnitude catches unit mix-ups without rejecting
// genuinely extreme but possible results.
const implausibilityFactor = 100.0

// Normalize applies the unit normalization algorithm to one observation.
// It is a pure function of its inputs: identical calls yield identical
// results, including confidence.
func (n *Normalizer) Normalize(param *domain.MetricParameter, obs domain.RawObservation) domain.NormalizedValue {
	nv := domain.NormalizedValue{
		Observation:      obs,
		Unit:             param.StandardUnit,
		ConversionFactor: 1.0,
	}

	if obs.Value == nil {
		nv.Confidence = domain.ConfidenceReject
		nv.Method = domain.MethodMissingValue
		nv.Warnings = append(nv.Warnings, "no numeric value extracted")
		return nv
	}
	raw := *obs.Value

	unit := canonicalUnit(obs.Unit)
	switch {
	case unit != "" && unit == canonicalUnit(param.StandardUnit):
		nv.Value = raw
		nv.Confidence = domain.ConfidenceHigh
		nv.Method = domain.MethodExactUnit

	case unit != "":
		if conv, ok := findConversion(param, unit); ok {
			n.applyConversion(param, &nv, raw, conv)
		} else {
			nv.Value = raw
			nv.Confidence = domain.ConfidenceLow
			nv.Method = domain.MethodUnrecognizedUnit
			nv.Warnings = append(nv.Warnings,
				fmt.Sprintf("unrecognized unit %q, value stored unconverted in %s", obs.Unit, param.StandardUnit))
		}

	default:
		n.inferMissingUnit(param, &nv, raw)
	}

	// Plausibility is checked after conversion, not only before: a value
	// already in standard units must not end up divided a second time.
	if wildlyImplausible(param.CriticalRange, nv.Value) {
		nv.Confidence = domain.ConfidenceReject
		nv.Warnings = append(nv.Warnings,
			fmt.Sprintf("value %g %s is far outside the plausible range [%g, %g]; excluded from chart series",
				nv.Value, nv.Unit, param.CriticalRange.Min, param.CriticalRange.Max))
	}

	n.log.WithFields(logrus.Fields{
		"metric":     param.Name,
		"raw_value":  raw,
		"raw_unit":   obs.Unit,
		"value":      nv.Value,
		"confidence": nv.Confidence,
		"method":     nv.Method,
	}).Debug("Normalized observation")

	return nv
}

// applyConversion applies a registered unit conversion, guarding against
// the double-conversion failure mode: when the converted value leaves the
// plausible range but the original value was already plausible in standard
// units, the original is kept and the conversion skipped.
func (n *Normalizer) applyConversion(param *domain.MetricParameter, nv *domain.NormalizedValue, raw float64, conv domain.UnitConversion) {
	converted := raw * conv.Factor

	if !param.CriticalRange.Contains(converted) && param.CriticalRange.Contains(raw) {
		nv.Value = raw
		nv.Confidence = domain.ConfidenceLow
		nv.Method = domain.MethodKnownConversion
		nv.Warnings = append(nv.Warnings,
			fmt.Sprintf("unit %q suggests conversion but value %g is already plausible in %s; conversion skipped to avoid double conversion",
				nv.Observation.Unit, raw, param.StandardUnit))
		return
	}

	nv.Value = converted
	nv.ConversionFactor = conv.Factor
	nv.ConversionRule = conv.Rule
	nv.Method = domain.MethodKnownConversion
	if param.CriticalRange.Contains(converted) {
		nv.Confidence = domain.ConfidenceHigh
	} else {
		nv.Confidence = domain.ConfidenceMedium
		nv.Warnings = append(nv.Warnings,
			fmt.Sprintf("converted value %g %s is outside the plausible range", converted, param.StandardUnit))
	}
}

// inferMissingUnit picks the best-fitting unit interpretation for a value
// with no unit, comparing its magnitude against the plausible range under
// the standard unit and under every registered conversion.
func (n *Normalizer) inferMissingUnit(param *domain.MetricParameter, nv *domain.NormalizedValue, raw float64) {
	nv.Method = domain.MethodMagnitudeHeuristic

	type fit struct {
		value  float64
		factor float64
		rule   string
	}
	var fits []fit
	if param.CriticalRange.Contains(raw) {
		fits = append(fits, fit{value: raw, factor: 1.0})
	}
	for _, conv := range param.Conversions {
		if conv.Factor == 1.0 {
			continue
		}
		if converted := raw * conv.Factor; param.CriticalRange.Contains(converted) {
			fits = append(fits, fit{value: converted, factor: conv.Factor, rule: conv.Rule})
		}
	}

	switch len(fits) {
	case 0:
		nv.Value = raw
		nv.Confidence = domain.ConfidenceLow
		nv.Warnings = append(nv.Warnings,
			fmt.Sprintf("unit missing and magnitude does not match any known convention for %s", param.Name))
	case 1:
		nv.Value = fits[0].value
		nv.ConversionFactor = fits[0].factor
		nv.ConversionRule = fits[0].rule
		nv.Confidence = domain.ConfidenceMedium
		nv.Warnings = append(nv.Warnings,
			fmt.Sprintf("unit missing; interpreted as %s by magnitude", param.StandardUnit))
	default:
		// Ambiguous: more than one interpretation is plausible. Prefer the
		// standard-unit reading when it is among the fits.
		chosen := fits[0]
		for _, f := range fits {
			if f.factor == 1.0 {
				chosen = f
				break
			}
		}
		nv.Value = chosen.value
		nv.ConversionFactor = chosen.factor
		nv.ConversionRule = chosen.rule
		nv.Confidence = domain.ConfidenceLow
		nv.Warnings = append(nv.Warnings,
			fmt.Sprintf("unit missing and magnitude is ambiguous between %d interpretations; assumed %s", len(fits), param.StandardUnit))
	}
}

// wildlyImplausible reports whether v is at least two orders of magnitude
// outside the critical range, or negative where the range is positive.
func wildlyImplausible(critical domain.Range, v float64) bool {
	if v < 0 && critical.Min >= 0 {
		return true
	}
	if v > critical.Max*implausibilityFactor {
		return true
	}
	if critical.Min > 0 && v < critical.Min/implausibilityFactor {
		return true
	}
	return false
}

// findConversion matches a canonicalized unit against a parameter's
// registered conversions.
func findConversion(param *domain.MetricParameter, unit string) (domain.UnitConversion, bool) {
	for _, conv := range param.Conversions {
		for _, alias := range conv.Aliases {
			if canonicalUnit(alias) == unit {
				return conv, true
			}
		}
	}
	return domain.UnitConversion{}, false
}

// canonicalUnit folds a freeform unit string for comparison: lowercase, all
// whitespace removed, micro-sign variants and multiplication signs unified.
func canonicalUnit(unit string) string {
	s := strings.ToLower(strings.TrimSpace(unit))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\t", "")
	s = strings.ReplaceAll(s, "µ", "u")
	s = strings.ReplaceAll(s, "μ", "u")
	s = strings.ReplaceAll(s, "×", "x")
	s = strings.ReplaceAll(s, "*", "x")
	s = strings.TrimPrefix(s, "x")
	return s
}
