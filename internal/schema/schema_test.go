package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/tablecat/internal/column"
)

func TestFirstFileCapturesExpectation(t *testing.T) {
	s := New()
	obs := Observed{Scale: 1, Offset: 0, HasMissingNumber: true, MissingNumber: -999, Units: "degree_C"}
	mismatches := s.Check("temp", column.KindFloat64, obs, Override{})
	assert.Empty(t, mismatches)

	exp := s.Expectations()["temp"]
	assert.Equal(t, -999.0, exp.MissingNumber)
	assert.Equal(t, "degree_C", exp.Units)
}

func TestSubsequentFileAgreeingProducesNoMismatch(t *testing.T) {
	s := New()
	first := Observed{Scale: 1, HasMissingNumber: true, MissingNumber: -999, Units: "degree_C"}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	second := Observed{Scale: 1, HasMissingNumber: true, MissingNumber: -999, Units: "degree_C"}
	assert.Empty(t, s.Check("temp", column.KindFloat64, second, Override{}))
}

func TestMismatchedMissingNumberIsReported(t *testing.T) {
	s := New()
	first := Observed{HasMissingNumber: true, MissingNumber: -999}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	second := Observed{HasMissingNumber: true, MissingNumber: -9999}
	mismatches := s.Check("temp", column.KindFloat64, second, Override{})
	require.Len(t, mismatches, 1)
	assert.Equal(t, "missing", mismatches[0].Attr)
}

func TestUnitsEquivalentSynonymsDoNotMismatch(t *testing.T) {
	s := New()
	first := Observed{Units: "degrees_north"}
	require.Empty(t, s.Check("lat", column.KindFloat64, first, Override{}))

	second := Observed{Units: "degree_north"}
	assert.Empty(t, s.Check("lat", column.KindFloat64, second, Override{}))
}

func TestUnspecifiedAttributeOnLaterFileIsNotMismatch(t *testing.T) {
	s := New()
	first := Observed{HasMissingNumber: true, MissingNumber: -999, Units: "degree_C"}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	// Later file omits missing/units entirely.
	second := Observed{}
	assert.Empty(t, s.Check("temp", column.KindFloat64, second, Override{}))
}

func TestOverrideSubstitutesBeforeCheck(t *testing.T) {
	s := New()
	first := Observed{HasMissingNumber: true, MissingNumber: -999}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	// Raw observed value disagrees, but the override brings it into line.
	second := Observed{HasMissingNumber: true, MissingNumber: -1}
	ov := Override{HasMissingNumber: true, MissingNumber: -999}
	assert.Empty(t, s.Check("temp", column.KindFloat64, second, ov))
}

func TestTextFillMismatchDetected(t *testing.T) {
	s := New()
	first := Observed{HasFillText: true, FillText: "NA"}
	require.Empty(t, s.Check("flag", column.KindText, first, Override{}))

	second := Observed{HasFillText: true, FillText: "N/A"}
	mismatches := s.Check("flag", column.KindText, second, Override{})
	require.Len(t, mismatches, 1)
	assert.Equal(t, "fill", mismatches[0].Attr)
}

func TestScaleOrOffsetMismatchDetected(t *testing.T) {
	s := New()
	first := Observed{Scale: 1, Offset: 0}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	second := Observed{Scale: 0.1, Offset: 0}
	mismatches := s.Check("temp", column.KindFloat64, second, Override{})
	require.Len(t, mismatches, 1)
	assert.Equal(t, "scale", mismatches[0].Attr)
}

func TestMetadataFromLastKeepsAdvancingExpectation(t *testing.T) {
	s := NewFromConfig("last")
	first := Observed{HasMissingNumber: true, MissingNumber: -999, Units: "degree_C"}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	second := Observed{HasMissingNumber: true, MissingNumber: -999, Units: "kelvin"}
	mismatches := s.Check("temp", column.KindFloat64, second, Override{})
	require.Len(t, mismatches, 1)
	assert.Equal(t, "units", mismatches[0].Attr)

	exp := s.Expectations()["temp"]
	assert.Equal(t, "kelvin", exp.Units, "last mode should advance the captured metadata to the newest file even after flagging a mismatch")
}

func TestMetadataFromFirstFreezesExpectation(t *testing.T) {
	s := NewFromConfig("first")
	first := Observed{Units: "degree_C"}
	require.Empty(t, s.Check("temp", column.KindFloat64, first, Override{}))

	second := Observed{Units: "kelvin"}
	s.Check("temp", column.KindFloat64, second, Override{})

	exp := s.Expectations()["temp"]
	assert.Equal(t, "degree_C", exp.Units)
}

func TestMismatchStringIncludesColumnAndAttr(t *testing.T) {
	m := Mismatch{Column: "temp", Attr: "units", Expected: "degree_C", Got: "kelvin"}
	assert.Contains(t, m.String(), "temp")
	assert.Contains(t, m.String(), "units")
}
