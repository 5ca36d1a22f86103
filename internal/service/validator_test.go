package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labseries-server/internal/domain"
)

func normalized(value float64, confidence domain.Confidence) domain.NormalizedValue {
	return domain.NormalizedValue{
		Value:      value,
		Unit:       "U/L",
		Confidence: confidence,
	}
}

func TestValidate_WithinNormal(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(30, domain.ConfidenceHigh), param)

	assert.Equal(t, domain.StatusValid, vr.Status)
	assert.True(t, vr.WithinNormal)
	assert.True(t, vr.WithinCritical)
	assert.Empty(t, vr.Notes)
}

func TestValidate_AboveNormal_StillValid(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(300, domain.ConfidenceHigh), param)

	assert.Equal(t, domain.StatusValid, vr.Status)
	assert.False(t, vr.WithinNormal)
	assert.Contains(t, vr.Notes, "above normal range")
}

func TestValidate_BelowNormal_StillValid(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(3, domain.ConfidenceHigh), param)

	assert.Equal(t, domain.StatusValid, vr.Status)
	assert.Contains(t, vr.Notes, "below normal range")
}

func TestValidate_OutsideCritical_HighConfidence_Suspicious(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(6000, domain.ConfidenceHigh), param)

	assert.Equal(t, domain.StatusSuspicious, vr.Status)
	assert.False(t, vr.WithinCritical)
}

func TestValidate_OutsideCritical_LowConfidence_Error(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(6000, domain.ConfidenceLow), param)

	assert.Equal(t, domain.StatusError, vr.Status)
}

func TestValidate_RejectedValue_Error(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(30, domain.ConfidenceReject), param)

	assert.Equal(t, domain.StatusError, vr.Status)
	assert.Contains(t, vr.Notes, "rejected")
}

func TestValidate_LowConfidence_Annotated(t *testing.T) {
	param := testParam(t, "ALT")

	vr := Validate(normalized(30, domain.ConfidenceLow), param)

	assert.Equal(t, domain.StatusValid, vr.Status)
	assert.Contains(t, vr.Notes, "low confidence")
}
