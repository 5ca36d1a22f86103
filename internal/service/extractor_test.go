package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labseries-server/internal/domain"
)

func adapt(t *testing.T, payload string) *ExtractionResult {
	t.Helper()
	e := NewExtractor(testLogger())
	res, err := e.Adapt([]byte(payload), "subj-1", "rep-1", domain.SourceAIExtraction, time.Now())
	require.NoError(t, err)
	return res
}

func TestAdapt_NameKeyed(t *testing.T) {
	res := adapt(t, `{
		"ALT": {"value": 45, "unit": "U/L"},
		"AST": {"value": 38, "unit": "U/L"}
	}`)

	require.Len(t, res.Observations, 2)
	assert.Equal(t, "ALT", res.Observations[0].MetricName)
	assert.Equal(t, 45.0, *res.Observations[0].Value)
	assert.Equal(t, "U/L", res.Observations[0].Unit)
	assert.Empty(t, res.Warnings)
}

func TestAdapt_NameKeyed_BareNumber(t *testing.T) {
	res := adapt(t, `{"Hemoglobin": 13.5}`)

	require.Len(t, res.Observations, 1)
	assert.Equal(t, "Hemoglobin", res.Observations[0].MetricName)
	assert.Equal(t, 13.5, *res.Observations[0].Value)
	assert.Empty(t, res.Observations[0].Unit)
}

func TestAdapt_NameKeyed_NullEntrySkipped(t *testing.T) {
	res := adapt(t, `{"ALT": {"value": 45, "unit": "U/L"}, "AST": null}`)

	require.Len(t, res.Observations, 1)
	assert.Len(t, res.Warnings, 1)
}

func TestAdapt_RecordList(t *testing.T) {
	res := adapt(t, `[
		{"name": "ALT", "value": 45, "unit": "U/L"},
		{"name": "Platelets", "value": 250, "unit": "10^9/L"}
	]`)

	require.Len(t, res.Observations, 2)
	assert.Equal(t, "ALT", res.Observations[0].MetricName)
	assert.Equal(t, "Platelets", res.Observations[1].MetricName)
}

func TestAdapt_RecordList_UnnamedEntrySkipped(t *testing.T) {
	res := adapt(t, `[{"value": 45, "unit": "U/L"}, {"name": "AST", "value": 38}]`)

	require.Len(t, res.Observations, 1)
	assert.Equal(t, "AST", res.Observations[0].MetricName)
	assert.Len(t, res.Warnings, 1)
}

func TestAdapt_IndexKeyed(t *testing.T) {
	// Upstream serialization bug: array encoded as an object with
	// stringified indices. Metric identity comes from each entry's name
	// field, never from the numeric keys.
	res := adapt(t, `{
		"0": {"name": "ALT", "value": 45, "unit": "U/L"},
		"1": {"name": "AST", "value": 38, "unit": "U/L"},
		"2": {"name": "Total Bilirubin", "value": 1.1, "unit": "mg/dL"},
		"3": {"name": "Albumin", "value": 4.2, "unit": "g/dL"}
	}`)

	require.Len(t, res.Observations, 4)
	names := make([]string, 0, 4)
	for _, o := range res.Observations {
		names = append(names, o.MetricName)
	}
	assert.Equal(t, []string{"ALT", "AST", "Total Bilirubin", "Albumin"}, names)
	assert.NotContains(t, names, "0")
}

func TestAdapt_IndexKeyed_OrderedByIndex(t *testing.T) {
	res := adapt(t, `{
		"10": {"name": "AST", "value": 38},
		"2": {"name": "ALT", "value": 45}
	}`)

	require.Len(t, res.Observations, 2)
	assert.Equal(t, "ALT", res.Observations[0].MetricName, "numeric ordering, not lexical")
}

func TestAdapt_NumericMetricKeysWithoutNames_TreatedAsNameKeyed(t *testing.T) {
	// All-numeric keys but no name fields: not the index bug, the keys are
	// the (odd) metric names.
	res := adapt(t, `{"0": {"value": 45, "unit": "U/L"}}`)

	require.Len(t, res.Observations, 1)
	assert.Equal(t, "0", res.Observations[0].MetricName)
}

func TestAdapt_StringNumbers(t *testing.T) {
	res := adapt(t, `{"ALT": {"value": "45.5", "unit": "U/L"}}`)

	require.Len(t, res.Observations, 1)
	assert.Equal(t, 45.5, *res.Observations[0].Value)
}

func TestAdapt_MissingValue_NilPointer(t *testing.T) {
	res := adapt(t, `{"ALT": {"unit": "U/L"}}`)

	require.Len(t, res.Observations, 1)
	assert.Nil(t, res.Observations[0].Value)
}

func TestAdapt_EmptyPayload_Malformed(t *testing.T) {
	e := NewExtractor(testLogger())

	_, err := e.Adapt(nil, "subj-1", "rep-1", domain.SourceAIExtraction, time.Now())

	var malformed *domain.MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
}

func TestAdapt_InvalidJSON_Malformed(t *testing.T) {
	e := NewExtractor(testLogger())

	_, err := e.Adapt([]byte("not json {"), "subj-1", "rep-1", domain.SourceAIExtraction, time.Now())

	var malformed *domain.MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
}

func TestAdapt_ScalarPayload_WarnsOnly(t *testing.T) {
	res := adapt(t, `42`)

	assert.Empty(t, res.Observations)
	assert.NotEmpty(t, res.Warnings)
}
