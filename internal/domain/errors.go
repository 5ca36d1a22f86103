package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the pipeline's failure taxonomy. Normalization and
// validation problems are never raised as errors; they are recovered into
// confidence/status annotations so a single bad value cannot abort a batch.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownMetric      = errors.New("unknown metric")
	ErrPersistenceFailure = errors.New("persistence failure")
)

// MalformedPayloadError indicates the extraction adapter could not parse the
// payload shape at all. It triggers the aggregator's explicit legacy
// fallback path; the submission is never lost outright.
type MalformedPayloadError struct {
	Reason string
}

// Error implements the error interface.
func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

// InsufficientDataError indicates a clinical score could not be computed
// because required metrics have no valid reconciled value. It is an
// explicit typed result, not a score of zero.
type InsufficientDataError struct {
	Score   string
	Missing []string
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s score: missing %s",
		e.Score, strings.Join(e.Missing, ", "))
}
